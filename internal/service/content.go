package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/contenthub/internal/metrics"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/queue"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/utils"
)

// Viewer is the reader of a content item.  Anonymous readers have a zero
// Actor; IP and UserAgent end up in the views table.
type Viewer struct {
	Actor
	IP        string
	UserAgent string
}

// ContentService holds the behaviour shared by articles, books and
// recipes: visibility, slugs, status changes, deletion and view counts.
type ContentService struct {
	store  *repository.Store
	files  *FileService
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewContentService(store *repository.Store, files *FileService, events EventPublisher, logger *slog.Logger) *ContentService {
	if events == nil {
		events = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		store:  store,
		files:  files,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// visible reports whether viewer may read c.  Unpublished items exist
// only for their author and admins.
func visible(c *model.Content, a Actor) bool {
	return c.Published() || (!a.Anonymous() && CanMutate(c.UserID, a.UserID, a.Role))
}

// meta loads the metadata row of id and checks it is of kind.
func (s *ContentService) meta(ctx context.Context, tx *repository.Store, kind model.Kind, id string) (model.Content, error) {
	c, err := tx.Contents.Get(ctx, id)
	if err != nil {
		return model.Content{}, notFoundOr(err, string(kind), id)
	}
	if c.Kind != kind {
		return model.Content{}, errNotFound(string(kind), id)
	}
	return c, nil
}

// readable loads metadata for a read by viewer; NOT_FOUND hides
// unpublished items from everyone but their author and admins.
func (s *ContentService) readable(ctx context.Context, kind model.Kind, id string, viewer Viewer) (model.Content, error) {
	c, err := s.meta(ctx, s.store, kind, id)
	if err != nil {
		return model.Content{}, err
	}
	if !visible(&c, viewer.Actor) {
		return model.Content{}, errNotFound(string(kind), id)
	}
	return c, nil
}

// ResolveSlug returns the id of the content item of kind behind slug.
func (s *ContentService) ResolveSlug(ctx context.Context, kind model.Kind, slug string, viewer Viewer) (string, error) {
	c, err := s.store.Contents.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return "", notFoundOr(err, string(kind), slug)
	}
	if c.Kind != kind || !visible(&c, viewer.Actor) {
		return "", errNotFound(string(kind), slug)
	}
	return c.ID, nil
}

// recordView stores a view row for published items.  Failures only log.
func (s *ContentService) recordView(ctx context.Context, c *model.Content, viewer Viewer) {
	if !c.Published() {
		return
	}
	v := model.View{ContentID: c.ID, IPAddress: truncate(viewer.IP, 64), UserAgent: truncate(viewer.UserAgent, 512)}
	if !viewer.Anonymous() {
		uid := viewer.UserID
		v.UserID = &uid
	}
	if err := s.store.Views.Record(ctx, &v); err != nil {
		s.logger.Warn("record view failed", "content_id", c.ID, "error", err)
		return
	}
	c.ViewsCount++
}

// slugFor derives a unique slug from title.  Empty or colliding slugs
// fall back to "<kind>-<unix nanos>".
func (s *ContentService) slugFor(ctx context.Context, tx *repository.Store, kind model.Kind, title, exceptID string) (string, error) {
	slug := utils.Slugify(title)
	if slug != "" {
		taken, err := tx.Contents.SlugTaken(ctx, slug, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
	}
	return utils.FallbackSlug(string(kind), s.now()), nil
}

// ChangeStatus moves a content item to status.  Author or admin only.
// Moving into Published emits a content.published event.
func (s *ContentService) ChangeStatus(ctx context.Context, kind model.Kind, id string, status model.Status, actor Actor) (model.Content, error) {
	status, ok := model.ParseStatus(string(status))
	if !ok {
		return model.Content{}, errValidation("status", "must be one of Draft, Published, Archived")
	}
	var (
		before model.Content
		after  model.Content
	)
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		c, err := s.meta(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if err := Authorize(c.UserID, actor); err != nil {
			return err
		}
		before = c
		if err := tx.Contents.SetStatus(ctx, id, status); err != nil {
			return notFoundOr(err, string(kind), id)
		}
		after, err = tx.Contents.Get(ctx, id)
		return err
	})
	if err != nil {
		return model.Content{}, err
	}
	if !before.Published() && after.Published() {
		s.published(ctx, after, actor)
	}
	metrics.RecordContent(string(kind), "status_"+strings.ToLower(string(status)))
	return after, nil
}

// published fires the publish event; broker trouble never fails the request.
func (s *ContentService) published(ctx context.Context, c model.Content, actor Actor) {
	metrics.RecordContent(string(c.Kind), "published")
	ev := queue.ContentPublishedEvent{
		ContentID:   c.ID,
		Kind:        string(c.Kind),
		Title:       c.Title,
		Slug:        c.Slug,
		AuthorID:    c.UserID,
		ActorID:     actor.UserID,
		PublishedAt: s.now().Format(time.RFC3339),
	}
	if err := s.events.PublishContentPublished(ctx, ev); err != nil {
		s.logger.Warn("publish content event failed", "content_id", c.ID, "error", err)
	}
}

// Delete removes a content item with its comments, likes, views and
// blobs.  Author or admin only.
func (s *ContentService) Delete(ctx context.Context, kind model.Kind, id string, actor Actor) error {
	var blobs []string
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		c, err := s.meta(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if err := Authorize(c.UserID, actor); err != nil {
			return err
		}
		blobs, err = attachedBlobs(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if err := tx.Contents.Delete(ctx, id); err != nil {
			return notFoundOr(err, string(kind), id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, b := range blobs {
		s.files.Remove(ctx, b)
	}
	metrics.RecordContent(string(kind), "deleted")
	s.logger.Info("content deleted", "kind", kind, "content_id", id, "actor_id", actor.UserID)
	return nil
}

func attachedBlobs(ctx context.Context, tx *repository.Store, kind model.Kind, id string) ([]string, error) {
	var out []string
	add := func(p *string) {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	switch kind {
	case model.KindBook:
		b, err := tx.Books.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		add(b.BookFileID)
		add(b.CoverFileID)
	case model.KindRecipe:
		r, err := tx.Recipes.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		add(r.ImageID)
	}
	return out, nil
}

// ListQuery is the common part of every list request.
type ListQuery struct {
	Search string
	Sort   string
	Status string // only honoured for "my" listings
	repository.Page
}

// filter builds the repository filter.  Public listings only see
// published items; "my" listings see everything of the caller.
func (q ListQuery) filter(owner string) (repository.ContentFilter, error) {
	f := repository.ContentFilter{Search: q.Search, Sort: q.Sort, Page: q.Page.Normalize()}
	if owner == "" {
		f.Status = model.StatusPublished
		return f, nil
	}
	f.UserID = owner
	if q.Status != "" {
		st, ok := model.ParseStatus(q.Status)
		if !ok {
			return f, errValidation("status", "must be one of Draft, Published, Archived")
		}
		f.Status = st
	}
	return f, nil
}

// ContentInput is the metadata every kind accepts on create/update.
type ContentInput struct {
	Title   *string
	Excerpt *string
	Status  *string
}

func (in ContentInput) validate(fe FieldErrors, creating bool) {
	if in.Title != nil || creating {
		title := ""
		if in.Title != nil {
			title = strings.TrimSpace(*in.Title)
		}
		n := utf8.RuneCountInString(title)
		fe.Check(n >= 1 && n <= 255, "title", "must be between 1 and 255 characters")
	}
	if in.Excerpt != nil {
		fe.Check(utf8.RuneCountInString(*in.Excerpt) <= 1000, "excerpt", "must be at most 1000 characters")
	}
	if in.Status != nil {
		_, ok := model.ParseStatus(*in.Status)
		fe.Check(ok, "status", "must be one of Draft, Published, Archived")
	}
}

// apply copies the set fields into c and reports whether the title changed.
func (in ContentInput) apply(c *model.Content) bool {
	titleChanged := false
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		titleChanged = t != c.Title
		c.Title = t
	}
	if in.Excerpt != nil {
		c.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.Status != nil {
		c.Status, _ = model.ParseStatus(*in.Status)
	}
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	return titleChanged
}

// checkTaxa fails with NOT_FOUND when any id is unknown.
func checkTaxa(ctx context.Context, tx *repository.Store, t model.Taxonomy, ids []string) ([]model.Taxon, error) {
	ids = dedupe(ids)
	missing, err := tx.Taxonomies.Missing(ctx, t, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, errNotFound(taxonomyEntity(t), missing[0])
	}
	return tx.Taxonomies.Resolve(ctx, t, ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// isDuplicate maps unique violations on contents (slug races) to CONFLICT.
func isDuplicate(err error) bool { return errors.Is(err, repository.ErrDuplicate) }

// Comments lists the comments of a content item of kind.
func (s *ContentService) Comments(ctx context.Context, kind model.Kind, id string, viewer Actor, p repository.Page) ([]model.Comment, int64, error) {
	if _, err := s.readable(ctx, kind, id, Viewer{Actor: viewer}); err != nil {
		return nil, 0, err
	}
	return s.store.Comments.ListByContent(ctx, id, p.Normalize())
}

// Likes lists the likes of a content item of kind.
func (s *ContentService) Likes(ctx context.Context, kind model.Kind, id string, viewer Actor, p repository.Page) ([]model.Like, int64, error) {
	if _, err := s.readable(ctx, kind, id, Viewer{Actor: viewer}); err != nil {
		return nil, 0, err
	}
	return s.store.Likes.ListByContent(ctx, id, p.Normalize())
}
