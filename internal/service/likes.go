package service

import (
	"context"
	"errors"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
)

// LikeService toggles and lists likes.
type LikeService struct {
	store *repository.Store
}

func NewLikeService(store *repository.Store) *LikeService {
	return &LikeService{store: store}
}

// LikeState is the result of Toggle and Check.
type LikeState struct {
	ContentID string
	Liked     bool
	Count     int64
}

// Toggle likes contentID for actor, or removes the like when it exists.
func (s *LikeService) Toggle(ctx context.Context, contentID string, actor Actor) (LikeState, error) {
	if actor.Anonymous() {
		return LikeState{}, errUnauthorized("authentication required")
	}
	st := LikeState{ContentID: contentID}
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		if _, err := visibleContent(ctx, tx, contentID, actor); err != nil {
			return err
		}
		removed, err := tx.Likes.Delete(ctx, contentID, actor.UserID)
		if err != nil {
			return err
		}
		if !removed {
			if _, err := tx.Likes.Create(ctx, contentID, actor.UserID); err != nil && !errors.Is(err, repository.ErrDuplicate) {
				return err
			}
		}
		st.Liked = !removed
		st.Count, err = tx.Likes.Count(ctx, contentID)
		return err
	})
	if err != nil {
		return LikeState{}, err
	}
	return st, nil
}

// Check reports whether actor likes contentID.
func (s *LikeService) Check(ctx context.Context, contentID string, actor Actor) (LikeState, error) {
	if actor.Anonymous() {
		return LikeState{}, errUnauthorized("authentication required")
	}
	if _, err := visibleContent(ctx, s.store, contentID, actor); err != nil {
		return LikeState{}, err
	}
	st := LikeState{ContentID: contentID}
	var err error
	if st.Liked, err = s.store.Likes.Exists(ctx, contentID, actor.UserID); err != nil {
		return LikeState{}, err
	}
	if st.Count, err = s.store.Likes.Count(ctx, contentID); err != nil {
		return LikeState{}, err
	}
	return st, nil
}

// ByContent lists the likes of a content item, newest first.
func (s *LikeService) ByContent(ctx context.Context, contentID string, viewer Actor, p repository.Page) ([]model.Like, int64, error) {
	if _, err := visibleContent(ctx, s.store, contentID, viewer); err != nil {
		return nil, 0, err
	}
	return s.store.Likes.ListByContent(ctx, contentID, p.Normalize())
}

// My lists the likes of actor.
func (s *LikeService) My(ctx context.Context, actor Actor, p repository.Page) ([]model.Like, int64, error) {
	if actor.Anonymous() {
		return nil, 0, errUnauthorized("authentication required")
	}
	return s.store.Likes.ListByUser(ctx, actor.UserID, p.Normalize())
}
