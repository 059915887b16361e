package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/contenthub/internal/model"
)

type UserRepo struct{ DB DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,avatar_id,role,created_on,modified_on"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u      model.User
		avatar sql.NullString
		role   string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &avatar, &role, &u.CreatedOn, &u.ModifiedOn); err != nil {
		return model.User{}, mapErr(err)
	}
	r, ok := model.ParseRole(role)
	if !ok {
		return model.User{}, fmt.Errorf("user %s has unknown role %q", u.ID, role)
	}
	u.Role = r
	if avatar.Valid {
		u.AvatarID = &avatar.String
	}
	return u, nil
}

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user.  ID and timestamps are filled in when empty.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	u.Email = NormalizeEmail(u.Email)
	u.CreatedOn = now()
	u.ModifiedOn = u.CreatedOn
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?)",
		u.ID, u.Username, u.Email, u.PasswordHash, u.AvatarID, string(u.Role), u.CreatedOn, u.ModifiedOn)
	return mapErr(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByLogin matches either the exact username or the normalized email.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	login = strings.TrimSpace(login)
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		login, NormalizeEmail(login)))
}

// UsernameTaken reports whether another user (not exceptID) owns username.
func (r *UserRepo) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username=? AND id<>?", username, exceptID).Scan(&n)
	return n > 0, err
}

// EmailTaken reports whether another user (not exceptID) owns email.
func (r *UserRepo) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=? AND id<>?", NormalizeEmail(email), exceptID).Scan(&n)
	return n > 0, err
}

// List returns one page of users ordered by username.
func (r *UserRepo) List(ctx context.Context, p Page) ([]model.User, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := p.limitOffset()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY username ASC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Update writes username, email, avatar and role of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	u.ModifiedOn = now()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username=?, email=?, avatar_id=?, role=?, modified_on=? WHERE id=?",
		u.Username, u.Email, u.AvatarID, string(u.Role), u.ModifiedOn, u.ID)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

// Delete removes a user.  Refresh tokens, content and interactions
// follow through ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

// CountByRole counts the users holding role.
func (r *UserRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role=?", string(role)).Scan(&n)
	return n, err
}

// RoleRepo reads the seeded `roles` table.
type RoleRepo struct{ DB DBTX }

func NewRoleRepo(db DBTX) *RoleRepo { return &RoleRepo{DB: db} }

// Get resolves a role by name; ErrNotFound when the seed is missing.
func (r *RoleRepo) Get(ctx context.Context, role model.Role) (model.Role, error) {
	var name string
	err := r.DB.QueryRowContext(ctx, "SELECT name FROM roles WHERE name=? LIMIT 1", string(role)).Scan(&name)
	if err != nil {
		return "", mapErr(err)
	}
	parsed, ok := model.ParseRole(name)
	if !ok {
		return "", ErrNotFound
	}
	return parsed, nil
}
