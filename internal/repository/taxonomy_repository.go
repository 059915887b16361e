package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/contenthub/internal/model"
)

// TaxonomyRepo serves the four lookup tables.  They share one shape so a
// single repository takes the table as a parameter.
type TaxonomyRepo struct{ DB DBTX }

func NewTaxonomyRepo(db DBTX) *TaxonomyRepo { return &TaxonomyRepo{DB: db} }

// usageSQL counts references to taxonomy row t.id.
var usageSQL = map[model.Taxonomy]string{
	model.TaxonomyArticleType: "SELECT COUNT(*) FROM articles x WHERE x.article_type_id = t.id",
	model.TaxonomyGenre:       "SELECT COUNT(*) FROM book_genres x WHERE x.genre_id = t.id",
	model.TaxonomyRegion:      "SELECT COUNT(*) FROM recipe_regions x WHERE x.region_id = t.id",
	model.TaxonomyRecipeType:  "SELECT COUNT(*) FROM recipe_type_claims x WHERE x.recipe_type_id = t.id",
}

func table(tx model.Taxonomy) (string, string, error) {
	usage, ok := usageSQL[tx]
	if !ok {
		return "", "", fmt.Errorf("unknown taxonomy %q", tx)
	}
	return string(tx), usage, nil
}

func (r *TaxonomyRepo) selectOne(ctx context.Context, tx model.Taxonomy, cond string, arg any) (model.Taxon, error) {
	tbl, usage, err := table(tx)
	if err != nil {
		return model.Taxon{}, err
	}
	var t model.Taxon
	err = r.DB.QueryRowContext(ctx,
		"SELECT t.id, t.name, t.created_on, t.modified_on, ("+usage+") FROM "+tbl+" t WHERE "+cond+" LIMIT 1", arg).
		Scan(&t.ID, &t.Name, &t.CreatedOn, &t.ModifiedOn, &t.UsageCount)
	if err != nil {
		return model.Taxon{}, mapErr(err)
	}
	return t, nil
}

// Get fetches one row by id with its usage count.
func (r *TaxonomyRepo) Get(ctx context.Context, tx model.Taxonomy, id string) (model.Taxon, error) {
	return r.selectOne(ctx, tx, "t.id = ?", id)
}

// GetByName fetches one row by case-insensitive name.
func (r *TaxonomyRepo) GetByName(ctx context.Context, tx model.Taxonomy, name string) (model.Taxon, error) {
	return r.selectOne(ctx, tx, "LOWER(t.name) = ?", strings.ToLower(strings.TrimSpace(name)))
}

// List returns one page ordered by name.
func (r *TaxonomyRepo) List(ctx context.Context, tx model.Taxonomy, p Page) ([]model.Taxon, int64, error) {
	tbl, usage, err := table(tx)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tbl).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := p.limitOffset()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT t.id, t.name, t.created_on, t.modified_on, ("+usage+") FROM "+tbl+" t ORDER BY t.name ASC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Taxon, 0, limit)
	for rows.Next() {
		var t model.Taxon
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedOn, &t.ModifiedOn, &t.UsageCount); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// Create inserts a row; ErrDuplicate on a taken name.
func (r *TaxonomyRepo) Create(ctx context.Context, tx model.Taxonomy, t *model.Taxon) error {
	tbl, _, err := table(tx)
	if err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedOn = now()
	t.ModifiedOn = t.CreatedOn
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO "+tbl+" (id, name, created_on, modified_on) VALUES (?,?,?,?)",
		t.ID, t.Name, t.CreatedOn, t.ModifiedOn)
	return mapErr(err)
}

// Rename changes the name of a row.
func (r *TaxonomyRepo) Rename(ctx context.Context, tx model.Taxonomy, id, name string) error {
	tbl, _, err := table(tx)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE "+tbl+" SET name=?, modified_on=? WHERE id=?", name, now(), id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

// Delete removes a row; ErrConflict when content still references it.
func (r *TaxonomyRepo) Delete(ctx context.Context, tx model.Taxonomy, id string) error {
	tbl, _, err := table(tx)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM "+tbl+" WHERE id=?", id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

// Missing returns the ids among ids that have no row in the table.
func (r *TaxonomyRepo) Missing(ctx context.Context, tx model.Taxonomy, ids []string) ([]string, error) {
	tbl, _, err := table(tx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id FROM "+tbl+" WHERE id IN ("+placeholders(len(ids))+")", stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Resolve loads the rows for ids, in name order.
func (r *TaxonomyRepo) Resolve(ctx context.Context, tx model.Taxonomy, ids []string) ([]model.Taxon, error) {
	tbl, _, err := table(tx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, created_on, modified_on FROM "+tbl+" WHERE id IN ("+placeholders(len(ids))+") ORDER BY name ASC",
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Taxon
	for rows.Next() {
		var t model.Taxon
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedOn, &t.ModifiedOn); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
