package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/contenthub/internal/model"
)

// ArticleRepo stores articles: a contents row plus an articles row.
type ArticleRepo struct{ DB DBTX }

func NewArticleRepo(db DBTX) *ArticleRepo { return &ArticleRepo{DB: db} }

// ArticleFilter adds article-specific filters to ContentFilter.
type ArticleFilter struct {
	ContentFilter
	TypeName string
}

const articleSelect = contentSelect + `,
		a.body, a.reading_time_minutes, a.article_type_id, t.name`

const articleJoin = `JOIN articles a ON a.content_id = c.id
		JOIN article_types t ON t.id = a.article_type_id`

func scanArticle(row rowScanner) (model.Article, error) {
	var a model.Article
	s := contentScan{c: &a.Content}
	dest := append(s.dest(), &a.Body, &a.ReadingTimeMinutes, &a.ArticleTypeID, &a.ArticleTypeName)
	if err := row.Scan(dest...); err != nil {
		return model.Article{}, mapErr(err)
	}
	s.finish()
	return a, nil
}

// Create inserts both rows of a new article.
func (r *ArticleRepo) Create(ctx context.Context, a *model.Article) error {
	a.Kind = model.KindArticle
	if err := NewContentRepo(r.DB).Insert(ctx, &a.Content); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO articles (content_id, body, reading_time_minutes, article_type_id) VALUES (?,?,?,?)",
		a.ID, a.Body, a.ReadingTimeMinutes, a.ArticleTypeID)
	return mapErr(err)
}

// Update rewrites both rows of an article.
func (r *ArticleRepo) Update(ctx context.Context, a *model.Article) error {
	if err := NewContentRepo(r.DB).Update(ctx, &a.Content); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE articles SET body=?, reading_time_minutes=?, article_type_id=? WHERE content_id=?",
		a.Body, a.ReadingTimeMinutes, a.ArticleTypeID, a.ID)
	return mapErr(err)
}

// Get fetches an article by content id.
func (r *ArticleRepo) Get(ctx context.Context, id string) (model.Article, error) {
	return scanArticle(r.DB.QueryRowContext(ctx,
		"SELECT "+articleSelect+" "+contentFrom+" "+articleJoin+" WHERE c.id = ? LIMIT 1", id))
}

// List returns one page of articles matching f.
func (r *ArticleRepo) List(ctx context.Context, f ArticleFilter) ([]model.Article, int64, error) {
	where, args := contentWhere(model.KindArticle, f.ContentFilter, "c.title", "c.excerpt", "a.body")
	if tn := strings.TrimSpace(f.TypeName); tn != "" {
		where = append(where, "LOWER(t.name) = ?")
		args = append(args, strings.ToLower(tn))
	}
	cond := whereClause(where)

	total, err := countContent(ctx, r.DB, articleJoin, cond, args)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := f.Page.limitOffset()
	dataSQL := "SELECT " + articleSelect + " " + contentFrom + " " + articleJoin +
		" WHERE " + cond + " ORDER BY " + contentOrder(f.Sort) + " LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, dataSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Article, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
