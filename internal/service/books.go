package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/contenthub/internal/metrics"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/storage"
)

// BookService implements the book endpoints.
type BookService struct {
	*ContentService
}

func NewBookService(content *ContentService) *BookService {
	return &BookService{ContentService: content}
}

// BookQuery filters book listings.
type BookQuery struct {
	ListQuery
	Title      string
	AuthorName string
	GenreIDs   []string
	YearMin    int
	YearMax    int
}

func (q BookQuery) filter(owner string) (repository.BookFilter, error) {
	cf, err := q.ListQuery.filter(owner)
	if err != nil {
		return repository.BookFilter{}, err
	}
	if q.YearMin > 0 && q.YearMax > 0 && q.YearMin > q.YearMax {
		return repository.BookFilter{}, errValidation("year_min", "must not exceed year_max")
	}
	return repository.BookFilter{
		ContentFilter: cf,
		Title:         q.Title,
		AuthorName:    q.AuthorName,
		GenreIDs:      dedupe(q.GenreIDs),
		YearMin:       q.YearMin,
		YearMax:       q.YearMax,
	}, nil
}

// BookInput carries create/update fields; nil means unchanged.
type BookInput struct {
	ContentInput
	AuthorName    *string
	Description   *string
	PageAmount    *int
	YearOfPublish *int
	GenreIDs      *[]string
}

func (in BookInput) validate(creating bool, now time.Time) error {
	fe := FieldErrors{}
	in.ContentInput.validate(fe, creating)
	if in.AuthorName != nil || creating {
		n := 0
		if in.AuthorName != nil {
			n = utf8.RuneCountInString(strings.TrimSpace(*in.AuthorName))
		}
		fe.Check(n >= 1 && n <= 255, "author_name", "must be between 1 and 255 characters")
	}
	if in.PageAmount != nil || creating {
		fe.Check(in.PageAmount != nil && *in.PageAmount > 0, "page_amount", "must be positive")
	}
	if in.YearOfPublish != nil || creating {
		fe.Check(in.YearOfPublish != nil && *in.YearOfPublish > 0 && *in.YearOfPublish <= now.Year()+1,
			"year_of_publish", "must be a valid year")
	}
	return fe.Err()
}

func (in BookInput) apply(b *model.Book) bool {
	titleChanged := in.ContentInput.apply(&b.Content)
	if in.AuthorName != nil {
		b.AuthorName = strings.TrimSpace(*in.AuthorName)
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.PageAmount != nil {
		b.PageAmount = *in.PageAmount
	}
	if in.YearOfPublish != nil {
		b.YearOfPublish = *in.YearOfPublish
	}
	return titleChanged
}

// List returns published books.
func (s *BookService) List(ctx context.Context, q BookQuery) ([]model.Book, int64, error) {
	f, err := q.filter("")
	if err != nil {
		return nil, 0, err
	}
	return s.store.Books.List(ctx, f)
}

// My returns every book of actor.
func (s *BookService) My(ctx context.Context, actor Actor, q BookQuery) ([]model.Book, int64, error) {
	if actor.Anonymous() {
		return nil, 0, errUnauthorized("authentication required")
	}
	f, err := q.filter(actor.UserID)
	if err != nil {
		return nil, 0, err
	}
	return s.store.Books.List(ctx, f)
}

// Get returns one book and records a view when it is published.
func (s *BookService) Get(ctx context.Context, id string, viewer Viewer) (model.Book, error) {
	if _, err := s.readable(ctx, model.KindBook, id, viewer); err != nil {
		return model.Book{}, err
	}
	b, err := s.store.Books.Get(ctx, id)
	if err != nil {
		return model.Book{}, notFoundOr(err, string(model.KindBook), id)
	}
	s.recordView(ctx, &b.Content, viewer)
	return b, nil
}

// GetBySlug is Get addressed by slug.
func (s *BookService) GetBySlug(ctx context.Context, slug string, viewer Viewer) (model.Book, error) {
	id, err := s.ResolveSlug(ctx, model.KindBook, slug, viewer)
	if err != nil {
		return model.Book{}, err
	}
	return s.Get(ctx, id, viewer)
}

// Create stores a new book owned by actor.  Every genre must exist.
func (s *BookService) Create(ctx context.Context, in BookInput, actor Actor) (model.Book, error) {
	if actor.Anonymous() {
		return model.Book{}, errUnauthorized("authentication required")
	}
	if err := in.validate(true, s.now()); err != nil {
		return model.Book{}, err
	}
	var b model.Book
	b.UserID = actor.UserID
	in.apply(&b)

	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		if in.GenreIDs != nil {
			genres, err := checkTaxa(ctx, tx, model.TaxonomyGenre, *in.GenreIDs)
			if err != nil {
				return err
			}
			b.Genres = genres
		}
		slug, err := s.slugFor(ctx, tx, model.KindBook, b.Title, "")
		if err != nil {
			return err
		}
		b.Slug = slug
		if err := tx.Books.Create(ctx, &b); err != nil {
			if isDuplicate(err) {
				return errConflict("slug %q already in use", b.Slug)
			}
			return err
		}
		b, err = tx.Books.Get(ctx, b.ID)
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	metrics.RecordContent(string(model.KindBook), "created")
	if b.Published() {
		s.published(ctx, b.Content, actor)
	}
	s.logger.Info("book created", "content_id", b.ID, "user_id", actor.UserID)
	return b, nil
}

// Update applies the set fields of in.  A non-nil GenreIDs replaces the
// genre set.
func (s *BookService) Update(ctx context.Context, id string, in BookInput, actor Actor) (model.Book, error) {
	if err := in.validate(false, s.now()); err != nil {
		return model.Book{}, err
	}
	var (
		b         model.Book
		published bool
	)
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		cur, err := s.meta(ctx, tx, model.KindBook, id)
		if err != nil {
			return err
		}
		if err := Authorize(cur.UserID, actor); err != nil {
			return err
		}
		b, err = tx.Books.Get(ctx, id)
		if err != nil {
			return notFoundOr(err, string(model.KindBook), id)
		}
		wasPublished := b.Published()
		if in.apply(&b) {
			if b.Slug, err = s.slugFor(ctx, tx, model.KindBook, b.Title, b.ID); err != nil {
				return err
			}
		}
		if in.GenreIDs != nil {
			if b.Genres, err = checkTaxa(ctx, tx, model.TaxonomyGenre, *in.GenreIDs); err != nil {
				return err
			}
		}
		if err := tx.Books.Update(ctx, &b); err != nil {
			if isDuplicate(err) {
				return errConflict("slug %q already in use", b.Slug)
			}
			return notFoundOr(err, string(model.KindBook), id)
		}
		published = !wasPublished && b.Published()
		b, err = tx.Books.Get(ctx, id)
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	metrics.RecordContent(string(model.KindBook), "updated")
	if published {
		s.published(ctx, b.Content, actor)
	}
	return b, nil
}

// Delete removes a book with its cover and document blobs.
func (s *BookService) Delete(ctx context.Context, id string, actor Actor) error {
	return s.ContentService.Delete(ctx, model.KindBook, id, actor)
}

// ChangeStatus sets the publication status of a book.
func (s *BookService) ChangeStatus(ctx context.Context, id string, status model.Status, actor Actor) (model.Content, error) {
	return s.ContentService.ChangeStatus(ctx, model.KindBook, id, status, actor)
}

// owned loads a book for mutation by actor.
func (s *BookService) owned(ctx context.Context, id string, actor Actor) (model.Book, error) {
	c, err := s.meta(ctx, s.store, model.KindBook, id)
	if err != nil {
		return model.Book{}, err
	}
	if err := Authorize(c.UserID, actor); err != nil {
		return model.Book{}, err
	}
	b, err := s.store.Books.Get(ctx, id)
	if err != nil {
		return model.Book{}, notFoundOr(err, string(model.KindBook), id)
	}
	return b, nil
}

// UploadCover stores an image as the cover of id, replacing the old one.
func (s *BookService) UploadCover(ctx context.Context, id string, up Upload, actor Actor) (model.Book, error) {
	b, err := s.owned(ctx, id, actor)
	if err != nil {
		return model.Book{}, err
	}
	blobID, err := s.files.SaveImage(ctx, up)
	if err != nil {
		return model.Book{}, err
	}
	if err := s.store.Books.SetCover(ctx, id, &blobID); err != nil {
		s.files.Remove(ctx, blobID)
		return model.Book{}, notFoundOr(err, string(model.KindBook), id)
	}
	if b.CoverFileID != nil {
		s.files.Remove(ctx, *b.CoverFileID)
	}
	return s.reload(ctx, id)
}

// UploadFile stores the readable document of id, replacing the old one.
func (s *BookService) UploadFile(ctx context.Context, id string, up Upload, actor Actor) (model.Book, error) {
	b, err := s.owned(ctx, id, actor)
	if err != nil {
		return model.Book{}, err
	}
	blobID, err := s.files.SaveDocument(ctx, up)
	if err != nil {
		return model.Book{}, err
	}
	if err := s.store.Books.SetFile(ctx, id, &blobID, up.Size); err != nil {
		s.files.Remove(ctx, blobID)
		return model.Book{}, notFoundOr(err, string(model.KindBook), id)
	}
	if b.BookFileID != nil {
		s.files.Remove(ctx, *b.BookFileID)
	}
	return s.reload(ctx, id)
}

func (s *BookService) reload(ctx context.Context, id string) (model.Book, error) {
	b, err := s.store.Books.Get(ctx, id)
	if err != nil {
		return model.Book{}, notFoundOr(err, string(model.KindBook), id)
	}
	metrics.RecordContent(string(model.KindBook), "file_uploaded")
	return b, nil
}

// ReadFile opens the document of a book visible to viewer.
func (s *BookService) ReadFile(ctx context.Context, id string, viewer Viewer) (*storage.Object, error) {
	if _, err := s.readable(ctx, model.KindBook, id, viewer); err != nil {
		return nil, err
	}
	b, err := s.store.Books.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, string(model.KindBook), id)
	}
	if b.BookFileID == nil {
		return nil, errNotFound("book file", id)
	}
	return s.files.Open(ctx, *b.BookFileID)
}
