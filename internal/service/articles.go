package service

import (
	"context"
	"strings"

	"github.com/iliyamo/contenthub/internal/metrics"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
)

// ArticleService implements the article endpoints on top of ContentService.
type ArticleService struct {
	*ContentService
}

func NewArticleService(content *ContentService) *ArticleService {
	return &ArticleService{ContentService: content}
}

// ArticleQuery filters article listings.
type ArticleQuery struct {
	ListQuery
	TypeName string
	AuthorID string
}

// ArticleInput carries create/update fields.  Nil pointers are left
// unchanged on update; on create Title, Body, ReadingTimeMinutes and
// ArticleTypeID are required.
type ArticleInput struct {
	ContentInput
	Body               *string
	ReadingTimeMinutes *int
	ArticleTypeID      *string
}

func (in ArticleInput) validate(creating bool) error {
	fe := FieldErrors{}
	in.ContentInput.validate(fe, creating)
	if in.Body != nil || creating {
		fe.Check(in.Body != nil && strings.TrimSpace(*in.Body) != "", "body", "is required")
	}
	if in.ReadingTimeMinutes != nil || creating {
		fe.Check(in.ReadingTimeMinutes != nil && *in.ReadingTimeMinutes >= 1 && *in.ReadingTimeMinutes <= 480,
			"reading_time_minutes", "must be between 1 and 480")
	}
	if in.ArticleTypeID != nil || creating {
		fe.Check(in.ArticleTypeID != nil && strings.TrimSpace(*in.ArticleTypeID) != "", "article_type_id", "is required")
	}
	return fe.Err()
}

// List returns published articles.
func (s *ArticleService) List(ctx context.Context, q ArticleQuery) ([]model.Article, int64, error) {
	cf, err := q.filter("")
	if err != nil {
		return nil, 0, err
	}
	if q.AuthorID != "" {
		cf.UserID = q.AuthorID
	}
	return s.store.Articles.List(ctx, repository.ArticleFilter{ContentFilter: cf, TypeName: q.TypeName})
}

// My returns every article of actor, optionally filtered by status.
func (s *ArticleService) My(ctx context.Context, actor Actor, q ArticleQuery) ([]model.Article, int64, error) {
	if actor.Anonymous() {
		return nil, 0, errUnauthorized("authentication required")
	}
	cf, err := q.filter(actor.UserID)
	if err != nil {
		return nil, 0, err
	}
	return s.store.Articles.List(ctx, repository.ArticleFilter{ContentFilter: cf, TypeName: q.TypeName})
}

// Get returns one article and records a view when it is published.
func (s *ArticleService) Get(ctx context.Context, id string, viewer Viewer) (model.Article, error) {
	if _, err := s.readable(ctx, model.KindArticle, id, viewer); err != nil {
		return model.Article{}, err
	}
	a, err := s.store.Articles.Get(ctx, id)
	if err != nil {
		return model.Article{}, notFoundOr(err, string(model.KindArticle), id)
	}
	s.recordView(ctx, &a.Content, viewer)
	return a, nil
}

// GetBySlug is Get addressed by slug.
func (s *ArticleService) GetBySlug(ctx context.Context, slug string, viewer Viewer) (model.Article, error) {
	id, err := s.ResolveSlug(ctx, model.KindArticle, slug, viewer)
	if err != nil {
		return model.Article{}, err
	}
	return s.Get(ctx, id, viewer)
}

// Create stores a new article owned by actor.
func (s *ArticleService) Create(ctx context.Context, in ArticleInput, actor Actor) (model.Article, error) {
	if actor.Anonymous() {
		return model.Article{}, errUnauthorized("authentication required")
	}
	if err := in.validate(true); err != nil {
		return model.Article{}, err
	}
	var a model.Article
	a.UserID = actor.UserID
	in.ContentInput.apply(&a.Content)
	a.Body = *in.Body
	a.ReadingTimeMinutes = *in.ReadingTimeMinutes
	a.ArticleTypeID = strings.TrimSpace(*in.ArticleTypeID)

	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		if _, err := tx.Taxonomies.Get(ctx, model.TaxonomyArticleType, a.ArticleTypeID); err != nil {
			return notFoundOr(err, "article type", a.ArticleTypeID)
		}
		slug, err := s.slugFor(ctx, tx, model.KindArticle, a.Title, "")
		if err != nil {
			return err
		}
		a.Slug = slug
		if err := tx.Articles.Create(ctx, &a); err != nil {
			if isDuplicate(err) {
				return errConflict("slug %q already in use", a.Slug)
			}
			return err
		}
		a, err = tx.Articles.Get(ctx, a.ID)
		return err
	})
	if err != nil {
		return model.Article{}, err
	}
	metrics.RecordContent(string(model.KindArticle), "created")
	if a.Published() {
		s.published(ctx, a.Content, actor)
	}
	s.logger.Info("article created", "content_id", a.ID, "user_id", actor.UserID)
	return a, nil
}

// Update applies the set fields of in.  A new title regenerates the slug.
func (s *ArticleService) Update(ctx context.Context, id string, in ArticleInput, actor Actor) (model.Article, error) {
	if err := in.validate(false); err != nil {
		return model.Article{}, err
	}
	var (
		a         model.Article
		published bool
	)
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		cur, err := s.meta(ctx, tx, model.KindArticle, id)
		if err != nil {
			return err
		}
		if err := Authorize(cur.UserID, actor); err != nil {
			return err
		}
		a, err = tx.Articles.Get(ctx, id)
		if err != nil {
			return notFoundOr(err, string(model.KindArticle), id)
		}
		wasPublished := a.Published()
		if in.ContentInput.apply(&a.Content) {
			if a.Slug, err = s.slugFor(ctx, tx, model.KindArticle, a.Title, a.ID); err != nil {
				return err
			}
		}
		if in.Body != nil {
			a.Body = *in.Body
		}
		if in.ReadingTimeMinutes != nil {
			a.ReadingTimeMinutes = *in.ReadingTimeMinutes
		}
		if in.ArticleTypeID != nil {
			a.ArticleTypeID = strings.TrimSpace(*in.ArticleTypeID)
			if _, err := tx.Taxonomies.Get(ctx, model.TaxonomyArticleType, a.ArticleTypeID); err != nil {
				return notFoundOr(err, "article type", a.ArticleTypeID)
			}
		}
		if err := tx.Articles.Update(ctx, &a); err != nil {
			if isDuplicate(err) {
				return errConflict("slug %q already in use", a.Slug)
			}
			return notFoundOr(err, string(model.KindArticle), id)
		}
		published = !wasPublished && a.Published()
		a, err = tx.Articles.Get(ctx, id)
		return err
	})
	if err != nil {
		return model.Article{}, err
	}
	metrics.RecordContent(string(model.KindArticle), "updated")
	if published {
		s.published(ctx, a.Content, actor)
	}
	return a, nil
}

// Delete removes an article.
func (s *ArticleService) Delete(ctx context.Context, id string, actor Actor) error {
	return s.ContentService.Delete(ctx, model.KindArticle, id, actor)
}

// ChangeStatus sets the publication status of an article.
func (s *ArticleService) ChangeStatus(ctx context.Context, id string, status model.Status, actor Actor) (model.Content, error) {
	return s.ContentService.ChangeStatus(ctx, model.KindArticle, id, status, actor)
}
