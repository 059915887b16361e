package repository

import (
	"context"

	"github.com/iliyamo/contenthub/internal/model"
)

// taxonLink describes a many-to-many join between a kind table and a
// taxonomy table, e.g. book_genres(book_id, genre_id) -> genres.
type taxonLink struct {
	join     string
	ownerCol string
	taxonCol string
	taxonomy model.Taxonomy
}

var (
	bookGenres        = taxonLink{"book_genres", "book_id", "genre_id", model.TaxonomyGenre}
	recipeTypeClaims  = taxonLink{"recipe_type_claims", "recipe_id", "recipe_type_id", model.TaxonomyRecipeType}
	recipeRegionLinks = taxonLink{"recipe_regions", "recipe_id", "region_id", model.TaxonomyRegion}
)

// replace swaps the taxon set of ownerID for ids.
func (l taxonLink) replace(ctx context.Context, db DBTX, ownerID string, ids []string) error {
	if _, err := db.ExecContext(ctx,
		"DELETE FROM "+l.join+" WHERE "+l.ownerCol+"=?", ownerID); err != nil {
		return err
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := db.ExecContext(ctx,
			"INSERT INTO "+l.join+" ("+l.ownerCol+", "+l.taxonCol+") VALUES (?,?)", ownerID, id); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

// load returns the taxa attached to each owner id, ordered by name.
func (l taxonLink) load(ctx context.Context, db DBTX, ownerIDs []string) (map[string][]model.Taxon, error) {
	out := make(map[string][]model.Taxon, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	rows, err := db.QueryContext(ctx,
		"SELECT j."+l.ownerCol+", t.id, t.name, t.created_on, t.modified_on FROM "+l.join+" j"+
			" JOIN "+string(l.taxonomy)+" t ON t.id = j."+l.taxonCol+
			" WHERE j."+l.ownerCol+" IN ("+placeholders(len(ownerIDs))+") ORDER BY t.name ASC",
		stringArgs(ownerIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			owner string
			t     model.Taxon
		)
		if err := rows.Scan(&owner, &t.ID, &t.Name, &t.CreatedOn, &t.ModifiedOn); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], t)
	}
	return out, rows.Err()
}

// anyOf renders an EXISTS condition matching owners linked to any of ids.
func (l taxonLink) anyOf(ownerExpr string, ids []string) (string, []any) {
	return "EXISTS (SELECT 1 FROM " + l.join + " x WHERE x." + l.ownerCol + " = " + ownerExpr +
		" AND x." + l.taxonCol + " IN (" + placeholders(len(ids)) + "))", stringArgs(ids)
}
