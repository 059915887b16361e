package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/contenthub/internal/model"
)

// ContentRepo manages the `contents` metadata rows shared by every kind.
type ContentRepo struct{ DB DBTX }

func NewContentRepo(db DBTX) *ContentRepo { return &ContentRepo{DB: db} }

// ContentFilter narrows list queries.  Zero values mean "any".
type ContentFilter struct {
	UserID string
	Status model.Status
	Search string
	Sort   string
	Page
}

// contentSelect lists the metadata columns followed by author and
// derived counters.  Kind queries append their own columns after it.
const contentSelect = `c.id, c.kind, c.title, c.slug, c.excerpt, c.status, c.user_id, c.created_on, c.modified_on,
		u.username, u.avatar_id,
		(SELECT COUNT(*) FROM likes l WHERE l.content_id = c.id) AS likes_count,
		(SELECT COUNT(*) FROM comments m WHERE m.content_id = c.id) AS comments_count,
		(SELECT COUNT(*) FROM views v WHERE v.content_id = c.id) AS views_count`

const contentFrom = `FROM contents c
		JOIN users u ON u.id = c.user_id`

// contentScan pairs scan destinations with post-processing of nullable
// author avatar.
type contentScan struct {
	c      *model.Content
	avatar sql.NullString
}

func (s *contentScan) dest() []any {
	c := s.c
	return []any{&c.ID, &c.Kind, &c.Title, &c.Slug, &c.Excerpt, &c.Status, &c.UserID, &c.CreatedOn, &c.ModifiedOn,
		&c.AuthorUsername, &s.avatar, &c.LikesCount, &c.CommentsCount, &c.ViewsCount}
}

func (s *contentScan) finish() {
	if s.avatar.Valid {
		v := s.avatar.String
		s.c.AuthorAvatarID = &v
	}
}

// contentWhere turns the common filter fields into SQL conditions.
// searchCols are matched with LIKE on the lower-cased value.
func contentWhere(kind model.Kind, f ContentFilter, searchCols ...string) ([]string, []any) {
	where := []string{"c.kind = ?"}
	args := []any{string(kind)}
	if f.UserID != "" {
		where = append(where, "c.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "c.status = ?")
		args = append(args, string(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" && len(searchCols) > 0 {
		ors := make([]string, 0, len(searchCols))
		for _, col := range searchCols {
			ors = append(ors, "LOWER("+col+") LIKE ?")
			args = append(args, likeArg(s))
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	return where, args
}

// Insert writes the metadata row of a new content item.
func (r *ContentRepo) Insert(ctx context.Context, c *model.Content) error {
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedOn = now()
	c.ModifiedOn = c.CreatedOn
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO contents (id, kind, title, slug, excerpt, status, user_id, created_on, modified_on)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, string(c.Kind), c.Title, c.Slug, c.Excerpt, string(c.Status), c.UserID, c.CreatedOn, c.ModifiedOn)
	return mapErr(err)
}

// Update rewrites title, slug, excerpt and status.
func (r *ContentRepo) Update(ctx context.Context, c *model.Content) error {
	c.ModifiedOn = now()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE contents SET title=?, slug=?, excerpt=?, status=?, modified_on=? WHERE id=?",
		c.Title, c.Slug, c.Excerpt, string(c.Status), c.ModifiedOn, c.ID)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

// SetStatus changes only the publication status.
func (r *ContentRepo) SetStatus(ctx context.Context, id string, status model.Status) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE contents SET status=?, modified_on=? WHERE id=?", string(status), now(), id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

// Touch bumps modified_on after a kind-table change.
func (r *ContentRepo) Touch(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE contents SET modified_on=? WHERE id=?", now(), id)
	return err
}

func (r *ContentRepo) getWhere(ctx context.Context, cond string, arg any) (model.Content, error) {
	var c model.Content
	s := contentScan{c: &c}
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+contentSelect+" "+contentFrom+" WHERE "+cond+" LIMIT 1", arg).Scan(s.dest()...)
	if err != nil {
		return model.Content{}, mapErr(err)
	}
	s.finish()
	return c, nil
}

// Get fetches metadata by id.
func (r *ContentRepo) Get(ctx context.Context, id string) (model.Content, error) {
	return r.getWhere(ctx, "c.id = ?", id)
}

// GetBySlug fetches metadata by slug.
func (r *ContentRepo) GetBySlug(ctx context.Context, slug string) (model.Content, error) {
	return r.getWhere(ctx, "c.slug = ?", slug)
}

// SlugTaken reports whether slug belongs to a content item other than exceptID.
func (r *ContentRepo) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contents WHERE slug=? AND id<>?", slug, exceptID).Scan(&n)
	return n > 0, err
}

// Delete removes the metadata row; kind rows, comments, likes and views
// cascade.
func (r *ContentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM contents WHERE id=?", id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

// orderBy maps the shared sort keys onto ORDER BY clauses.
func contentOrder(sort string) string {
	switch strings.ToLower(sort) {
	case "oldest":
		return "c.created_on ASC, c.id ASC"
	case "most_liked":
		return "likes_count DESC, c.created_on DESC, c.id ASC"
	case "most_commented":
		return "comments_count DESC, c.created_on DESC, c.id ASC"
	default:
		return "c.created_on DESC, c.id ASC"
	}
}

// countContent runs the COUNT(*) for a list query.
func countContent(ctx context.Context, db DBTX, join, cond string, args []any) (int64, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) "+contentFrom+" "+join+" WHERE "+cond, args...).Scan(&total)
	return total, err
}
