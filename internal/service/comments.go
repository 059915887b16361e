package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
)

const maxCommentRunes = 2000

// CommentService manages comments on content items.
type CommentService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewCommentService(store *repository.Store, logger *slog.Logger) *CommentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentService{store: store, logger: logger}
}

// CommentInput is a new comment.  ParentID, when set, must name a
// comment on the same content item.
type CommentInput struct {
	ContentID string
	ParentID  *string
	Text      string
}

func validateCommentText(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < 1 || n > maxCommentRunes {
		return errValidation("text", "must be between 1 and 2000 characters")
	}
	return nil
}

// visibleContent loads any content item readable by viewer.
func visibleContent(ctx context.Context, tx *repository.Store, id string, a Actor) (model.Content, error) {
	c, err := tx.Contents.Get(ctx, id)
	if err != nil {
		return model.Content{}, notFoundOr(err, "content", id)
	}
	if !visible(&c, a) {
		return model.Content{}, errNotFound("content", id)
	}
	return c, nil
}

// ListByContent returns the comments of a content item, oldest first.
func (s *CommentService) ListByContent(ctx context.Context, contentID string, viewer Actor, p repository.Page) ([]model.Comment, int64, error) {
	if _, err := visibleContent(ctx, s.store, contentID, viewer); err != nil {
		return nil, 0, err
	}
	return s.store.Comments.ListByContent(ctx, contentID, p.Normalize())
}

// ListByUser returns the comments written by userID.
func (s *CommentService) ListByUser(ctx context.Context, userID string, actor Actor, p repository.Page) ([]model.Comment, int64, error) {
	if actor.Anonymous() {
		return nil, 0, errUnauthorized("authentication required")
	}
	if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
		return nil, 0, notFoundOr(err, "user", userID)
	}
	return s.store.Comments.ListByUser(ctx, userID, p.Normalize())
}

// Create adds a comment by actor.
func (s *CommentService) Create(ctx context.Context, in CommentInput, actor Actor) (model.Comment, error) {
	if actor.Anonymous() {
		return model.Comment{}, errUnauthorized("authentication required")
	}
	if err := validateCommentText(in.Text); err != nil {
		return model.Comment{}, err
	}
	var m model.Comment
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		if _, err := visibleContent(ctx, tx, in.ContentID, actor); err != nil {
			return err
		}
		if in.ParentID != nil && *in.ParentID != "" {
			parent, err := tx.Comments.Get(ctx, *in.ParentID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return oops.With("parent_id", *in.ParentID).Wrapf(err, "load parent comment")
			}
			if err != nil || parent.ContentID != in.ContentID {
				return errValidation("parent_id", "must be a comment on the same content")
			}
		} else {
			in.ParentID = nil
		}
		m = model.Comment{
			ContentID: in.ContentID,
			UserID:    actor.UserID,
			ParentID:  in.ParentID,
			Text:      strings.TrimSpace(in.Text),
		}
		if err := tx.Comments.Create(ctx, &m); err != nil {
			return err
		}
		var err error
		m, err = tx.Comments.Get(ctx, m.ID)
		return err
	})
	if err != nil {
		return model.Comment{}, err
	}
	return m, nil
}

// Update rewrites the text of a comment.  Author or admin only.
func (s *CommentService) Update(ctx context.Context, id, text string, actor Actor) (model.Comment, error) {
	if err := validateCommentText(text); err != nil {
		return model.Comment{}, err
	}
	var m model.Comment
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		cur, err := tx.Comments.Get(ctx, id)
		if err != nil {
			return notFoundOr(err, "comment", id)
		}
		if err := Authorize(cur.UserID, actor); err != nil {
			return err
		}
		if err := tx.Comments.UpdateText(ctx, id, strings.TrimSpace(text)); err != nil {
			return notFoundOr(err, "comment", id)
		}
		m, err = tx.Comments.Get(ctx, id)
		return err
	})
	if err != nil {
		return model.Comment{}, err
	}
	return m, nil
}

// Delete removes a comment and its replies.  Author or admin only.
func (s *CommentService) Delete(ctx context.Context, id string, actor Actor) error {
	return s.store.Tx(ctx, func(tx *repository.Store) error {
		cur, err := tx.Comments.Get(ctx, id)
		if err != nil {
			return notFoundOr(err, "comment", id)
		}
		if err := Authorize(cur.UserID, actor); err != nil {
			return err
		}
		return notFoundOr(tx.Comments.Delete(ctx, id), "comment", id)
	})
}
