package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/contenthub/internal/model"
)

// LikeRepo stores the unique (content, user) like pairs.
type LikeRepo struct{ DB DBTX }

func NewLikeRepo(db DBTX) *LikeRepo { return &LikeRepo{DB: db} }

// Create inserts a like; ErrDuplicate when the pair already exists.
func (r *LikeRepo) Create(ctx context.Context, contentID, userID string) (model.Like, error) {
	l := model.Like{ID: newID(), ContentID: contentID, UserID: userID, CreatedOn: now()}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO likes (id, content_id, user_id, created_on) VALUES (?,?,?,?)",
		l.ID, l.ContentID, l.UserID, l.CreatedOn)
	if err != nil {
		return model.Like{}, mapErr(err)
	}
	return l, nil
}

// Delete removes the pair and reports whether it existed.
func (r *LikeRepo) Delete(ctx context.Context, contentID, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM likes WHERE content_id=? AND user_id=?", contentID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Exists reports whether userID likes contentID.
func (r *LikeRepo) Exists(ctx context.Context, contentID, userID string) (bool, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM likes WHERE content_id=? AND user_id=?", contentID, userID).Scan(&n)
	return n > 0, err
}

// Count returns the number of likes of contentID.
func (r *LikeRepo) Count(ctx context.Context, contentID string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM likes WHERE content_id=?", contentID).Scan(&n)
	return n, err
}

func (r *LikeRepo) list(ctx context.Context, col, val string, p Page) ([]model.Like, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM likes WHERE "+col+" = ?", val).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := p.limitOffset()
	rows, err := r.DB.QueryContext(ctx,
		`SELECT l.id, l.content_id, l.user_id, l.created_on, u.username, u.avatar_id
		 FROM likes l JOIN users u ON u.id = l.user_id
		 WHERE l.`+col+` = ? ORDER BY l.created_on DESC, l.id ASC LIMIT ? OFFSET ?`,
		val, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Like, 0, limit)
	for rows.Next() {
		var (
			l      model.Like
			avatar sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.ContentID, &l.UserID, &l.CreatedOn, &l.Username, &avatar); err != nil {
			return nil, 0, err
		}
		if avatar.Valid {
			l.AvatarID = &avatar.String
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// ListByContent returns who liked contentID, newest first.
func (r *LikeRepo) ListByContent(ctx context.Context, contentID string, p Page) ([]model.Like, int64, error) {
	return r.list(ctx, "content_id", contentID, p)
}

// ListByUser returns what userID liked, newest first.
func (r *LikeRepo) ListByUser(ctx context.Context, userID string, p Page) ([]model.Like, int64, error) {
	return r.list(ctx, "user_id", userID, p)
}

// ViewRepo records reads of content items.
type ViewRepo struct{ DB DBTX }

func NewViewRepo(db DBTX) *ViewRepo { return &ViewRepo{DB: db} }

// Record inserts a view row.
func (r *ViewRepo) Record(ctx context.Context, v *model.View) error {
	if v.ID == "" {
		v.ID = newID()
	}
	v.CreatedOn = now()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO views (id, content_id, user_id, ip_address, user_agent, created_on) VALUES (?,?,?,?,?,?)",
		v.ID, v.ContentID, v.UserID, v.IPAddress, v.UserAgent, v.CreatedOn)
	return mapErr(err)
}

// Count returns the number of recorded views of contentID.
func (r *ViewRepo) Count(ctx context.Context, contentID string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM views WHERE content_id=?", contentID).Scan(&n)
	return n, err
}
