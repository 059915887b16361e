package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository
// can run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups every repository over one connection or transaction.
type Store struct {
	db *sql.DB // nil when the store is bound to a transaction

	Users      *UserRepo
	Roles      *RoleRepo
	Tokens     *TokenRepo
	Contents   *ContentRepo
	Articles   *ArticleRepo
	Books      *BookRepo
	Recipes    *RecipeRepo
	Comments   *CommentRepo
	Likes      *LikeRepo
	Views      *ViewRepo
	Taxonomies *TaxonomyRepo
}

// NewStore builds a Store over db.
func NewStore(db *sql.DB) *Store {
	s := bind(db)
	s.db = db
	return s
}

func bind(q DBTX) *Store {
	return &Store{
		Users:      NewUserRepo(q),
		Roles:      NewRoleRepo(q),
		Tokens:     NewTokenRepo(q),
		Contents:   NewContentRepo(q),
		Articles:   NewArticleRepo(q),
		Books:      NewBookRepo(q),
		Recipes:    NewRecipeRepo(q),
		Comments:   NewCommentRepo(q),
		Likes:      NewLikeRepo(q),
		Views:      NewViewRepo(q),
		Taxonomies: NewTaxonomyRepo(q),
	}
}

// DB exposes the underlying pool (health checks, tests).
func (s *Store) DB() *sql.DB { return s.db }

// Tx runs fn inside one transaction.  fn must only use the store it is
// given; the pool may have a single connection (SQLite) and the outer
// store would block on it.  A store that is already transactional runs
// fn directly.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.db == nil {
		return fn(s)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()
	if err = fn(bind(sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Page normalises pagination input.  Page is 1-based.
type Page struct {
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize clamps the values to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Page) limitOffset() (int, int) {
	p = p.Normalize()
	return p.PageSize, (p.Page - 1) * p.PageSize
}

// now returns the timestamp written into created_on/modified_on.  UTC
// and microsecond precision match DATETIME(6).
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func newID() string { return uuid.NewString() }

// placeholders renders "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func likeArg(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return "1=1"
	}
	return strings.Join(where, " AND ")
}

func stringArgs(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if n > 1 {
		return fmt.Errorf("expected 1 affected row, got %d", n)
	}
	return nil
}
