package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/contenthub/internal/model"
)

// BookRepo stores books together with their genre links.
type BookRepo struct{ DB DBTX }

func NewBookRepo(db DBTX) *BookRepo { return &BookRepo{DB: db} }

// BookFilter adds book-specific filters to ContentFilter.
type BookFilter struct {
	ContentFilter
	Title      string
	AuthorName string
	GenreIDs   []string
	YearMin    int
	YearMax    int
}

const bookSelect = contentSelect + `,
		b.author_name, b.description, b.page_amount, b.year_of_publish, b.book_file_id, b.file_size_bytes, b.cover_file_id`

const bookJoin = `JOIN books b ON b.content_id = c.id`

func scanBook(row rowScanner) (model.Book, error) {
	var (
		b           model.Book
		file, cover sql.NullString
	)
	s := contentScan{c: &b.Content}
	dest := append(s.dest(), &b.AuthorName, &b.Description, &b.PageAmount, &b.YearOfPublish, &file, &b.FileSizeBytes, &cover)
	if err := row.Scan(dest...); err != nil {
		return model.Book{}, mapErr(err)
	}
	s.finish()
	if file.Valid {
		b.BookFileID = &file.String
	}
	if cover.Valid {
		b.CoverFileID = &cover.String
	}
	return b, nil
}

// Create inserts a book and its genre links.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	b.Kind = model.KindBook
	if err := NewContentRepo(r.DB).Insert(ctx, &b.Content); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO books (content_id, author_name, description, page_amount, year_of_publish, book_file_id, file_size_bytes, cover_file_id)
		 VALUES (?,?,?,?,?,?,?,?)`,
		b.ID, b.AuthorName, b.Description, b.PageAmount, b.YearOfPublish, b.BookFileID, b.FileSizeBytes, b.CoverFileID)
	if err != nil {
		return mapErr(err)
	}
	return bookGenres.replace(ctx, r.DB, b.ID, taxonIDs(b.Genres))
}

// Update rewrites a book and replaces its genres.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	if err := NewContentRepo(r.DB).Update(ctx, &b.Content); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE books SET author_name=?, description=?, page_amount=?, year_of_publish=? WHERE content_id=?",
		b.AuthorName, b.Description, b.PageAmount, b.YearOfPublish, b.ID)
	if err != nil {
		return mapErr(err)
	}
	return bookGenres.replace(ctx, r.DB, b.ID, taxonIDs(b.Genres))
}

// SetCover stores the blob id of the cover image.
func (r *BookRepo) SetCover(ctx context.Context, id string, fileID *string) error {
	if _, err := r.DB.ExecContext(ctx, "UPDATE books SET cover_file_id=? WHERE content_id=?", fileID, id); err != nil {
		return err
	}
	return NewContentRepo(r.DB).Touch(ctx, id)
}

// SetFile stores the blob id and size of the book document.
func (r *BookRepo) SetFile(ctx context.Context, id string, fileID *string, size int64) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE books SET book_file_id=?, file_size_bytes=? WHERE content_id=?", fileID, size, id); err != nil {
		return err
	}
	return NewContentRepo(r.DB).Touch(ctx, id)
}

// Get fetches a book and its genres.
func (r *BookRepo) Get(ctx context.Context, id string) (model.Book, error) {
	b, err := scanBook(r.DB.QueryRowContext(ctx,
		"SELECT "+bookSelect+" "+contentFrom+" "+bookJoin+" WHERE c.id = ? LIMIT 1", id))
	if err != nil {
		return model.Book{}, err
	}
	genres, err := bookGenres.load(ctx, r.DB, []string{b.ID})
	if err != nil {
		return model.Book{}, err
	}
	b.Genres = genres[b.ID]
	return b, nil
}

func bookOrder(sort string) string {
	switch strings.ToLower(sort) {
	case "year_desc":
		return "b.year_of_publish DESC, c.created_on DESC, c.id ASC"
	case "year_asc":
		return "b.year_of_publish ASC, c.created_on DESC, c.id ASC"
	case "created_desc", "":
		return "c.created_on DESC, c.id ASC"
	}
	return contentOrder(sort)
}

// List returns one page of books matching f.
func (r *BookRepo) List(ctx context.Context, f BookFilter) ([]model.Book, int64, error) {
	where, args := contentWhere(model.KindBook, f.ContentFilter, "c.title", "c.excerpt", "b.description")
	if s := strings.TrimSpace(f.Title); s != "" {
		where = append(where, "LOWER(c.title) LIKE ?")
		args = append(args, likeArg(s))
	}
	if s := strings.TrimSpace(f.AuthorName); s != "" {
		where = append(where, "LOWER(b.author_name) LIKE ?")
		args = append(args, likeArg(s))
	}
	if len(f.GenreIDs) > 0 {
		cond, a := bookGenres.anyOf("b.content_id", f.GenreIDs)
		where = append(where, cond)
		args = append(args, a...)
	}
	if f.YearMin > 0 {
		where = append(where, "b.year_of_publish >= ?")
		args = append(args, f.YearMin)
	}
	if f.YearMax > 0 {
		where = append(where, "b.year_of_publish <= ?")
		args = append(args, f.YearMax)
	}
	cond := whereClause(where)

	total, err := countContent(ctx, r.DB, bookJoin, cond, args)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := f.Page.limitOffset()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookSelect+" "+contentFrom+" "+bookJoin+" WHERE "+cond+" ORDER BY "+bookOrder(f.Sort)+" LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.Book, 0, limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, err
	}
	rows.Close()

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	genres, err := bookGenres.load(ctx, r.DB, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Genres = genres[out[i].ID]
	}
	return out, total, nil
}

func taxonIDs(ts []model.Taxon) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}
