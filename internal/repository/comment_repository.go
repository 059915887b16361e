package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/contenthub/internal/model"
)

// CommentRepo stores comments on content items.
type CommentRepo struct{ DB DBTX }

func NewCommentRepo(db DBTX) *CommentRepo { return &CommentRepo{DB: db} }

const commentSelect = `SELECT m.id, m.content_id, c.kind, m.user_id, m.parent_id, m.text, m.created_on, m.modified_on,
		u.username, u.avatar_id
	FROM comments m
	JOIN contents c ON c.id = m.content_id
	JOIN users u    ON u.id = m.user_id`

func scanComment(row rowScanner) (model.Comment, error) {
	var (
		m              model.Comment
		parent, avatar sql.NullString
	)
	err := row.Scan(&m.ID, &m.ContentID, &m.ContentKind, &m.UserID, &parent, &m.Text, &m.CreatedOn, &m.ModifiedOn,
		&m.Username, &avatar)
	if err != nil {
		return model.Comment{}, mapErr(err)
	}
	if parent.Valid {
		m.ParentID = &parent.String
	}
	if avatar.Valid {
		m.AvatarID = &avatar.String
	}
	return m, nil
}

// Create inserts a comment.
func (r *CommentRepo) Create(ctx context.Context, m *model.Comment) error {
	if m.ID == "" {
		m.ID = newID()
	}
	m.CreatedOn = now()
	m.ModifiedOn = m.CreatedOn
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (id, content_id, user_id, parent_id, text, created_on, modified_on) VALUES (?,?,?,?,?,?,?)",
		m.ID, m.ContentID, m.UserID, m.ParentID, m.Text, m.CreatedOn, m.ModifiedOn)
	return mapErr(err)
}

// Get fetches a comment by id.
func (r *CommentRepo) Get(ctx context.Context, id string) (model.Comment, error) {
	return scanComment(r.DB.QueryRowContext(ctx, commentSelect+" WHERE m.id = ? LIMIT 1", id))
}

// UpdateText rewrites the comment body.
func (r *CommentRepo) UpdateText(ctx context.Context, id, text string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET text=?, modified_on=? WHERE id=?", text, now(), id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

// Delete removes a comment; replies cascade.
func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id=?", id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

func (r *CommentRepo) list(ctx context.Context, col, val string, p Page) ([]model.Comment, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comments m WHERE m."+col+" = ?", val).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := p.limitOffset()
	rows, err := r.DB.QueryContext(ctx,
		commentSelect+" WHERE m."+col+" = ? ORDER BY m.created_on ASC, m.id ASC LIMIT ? OFFSET ?",
		val, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Comment, 0, limit)
	for rows.Next() {
		m, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// ListByContent returns the comments of one content item, oldest first.
func (r *CommentRepo) ListByContent(ctx context.Context, contentID string, p Page) ([]model.Comment, int64, error) {
	return r.list(ctx, "content_id", contentID, p)
}

// ListByUser returns the comments written by one user, oldest first.
func (r *CommentRepo) ListByUser(ctx context.Context, userID string, p Page) ([]model.Comment, int64, error) {
	return r.list(ctx, "user_id", userID, p)
}
