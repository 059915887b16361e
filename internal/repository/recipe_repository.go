package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/contenthub/internal/model"
)

// RecipeRepo stores recipes together with their type and region links.
type RecipeRepo struct{ DB DBTX }

func NewRecipeRepo(db DBTX) *RecipeRepo { return &RecipeRepo{DB: db} }

// RecipeFilter adds recipe-specific filters to ContentFilter.
type RecipeFilter struct {
	ContentFilter
	Title         string
	Difficulty    *model.Difficulty
	RecipeTypeIDs []string
	RegionIDs     []string
	CookTimeMin   int
	CookTimeMax   int
}

const recipeSelect = contentSelect + `,
		r.difficulty, r.ingredients, r.instructions, r.cook_time_minutes, r.image_id`

const recipeJoin = `JOIN recipes r ON r.content_id = c.id`

func scanRecipe(row rowScanner) (model.Recipe, error) {
	var (
		rc    model.Recipe
		image sql.NullString
	)
	s := contentScan{c: &rc.Content}
	dest := append(s.dest(), &rc.Difficulty, &rc.Ingredients, &rc.Instructions, &rc.CookTimeMinutes, &image)
	if err := row.Scan(dest...); err != nil {
		return model.Recipe{}, mapErr(err)
	}
	s.finish()
	if image.Valid {
		rc.ImageID = &image.String
	}
	return rc, nil
}

// Create inserts a recipe and its links.
func (r *RecipeRepo) Create(ctx context.Context, rc *model.Recipe) error {
	rc.Kind = model.KindRecipe
	if err := NewContentRepo(r.DB).Insert(ctx, &rc.Content); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO recipes (content_id, difficulty, ingredients, instructions, cook_time_minutes, image_id)
		 VALUES (?,?,?,?,?,?)`,
		rc.ID, int(rc.Difficulty), rc.Ingredients, rc.Instructions, rc.CookTimeMinutes, rc.ImageID)
	if err != nil {
		return mapErr(err)
	}
	return r.replaceLinks(ctx, rc)
}

// Update rewrites a recipe and replaces its links.
func (r *RecipeRepo) Update(ctx context.Context, rc *model.Recipe) error {
	if err := NewContentRepo(r.DB).Update(ctx, &rc.Content); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE recipes SET difficulty=?, ingredients=?, instructions=?, cook_time_minutes=? WHERE content_id=?",
		int(rc.Difficulty), rc.Ingredients, rc.Instructions, rc.CookTimeMinutes, rc.ID)
	if err != nil {
		return mapErr(err)
	}
	return r.replaceLinks(ctx, rc)
}

func (r *RecipeRepo) replaceLinks(ctx context.Context, rc *model.Recipe) error {
	if err := recipeTypeClaims.replace(ctx, r.DB, rc.ID, taxonIDs(rc.RecipeTypes)); err != nil {
		return err
	}
	return recipeRegionLinks.replace(ctx, r.DB, rc.ID, taxonIDs(rc.Regions))
}

// SetImage stores the blob id of the recipe image.
func (r *RecipeRepo) SetImage(ctx context.Context, id string, imageID *string) error {
	if _, err := r.DB.ExecContext(ctx, "UPDATE recipes SET image_id=? WHERE content_id=?", imageID, id); err != nil {
		return err
	}
	return NewContentRepo(r.DB).Touch(ctx, id)
}

// Get fetches a recipe with its types and regions.
func (r *RecipeRepo) Get(ctx context.Context, id string) (model.Recipe, error) {
	rc, err := scanRecipe(r.DB.QueryRowContext(ctx,
		"SELECT "+recipeSelect+" "+contentFrom+" "+recipeJoin+" WHERE c.id = ? LIMIT 1", id))
	if err != nil {
		return model.Recipe{}, err
	}
	list := []model.Recipe{rc}
	if err := r.attachLinks(ctx, list); err != nil {
		return model.Recipe{}, err
	}
	return list[0], nil
}

func (r *RecipeRepo) attachLinks(ctx context.Context, list []model.Recipe) error {
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	types, err := recipeTypeClaims.load(ctx, r.DB, ids)
	if err != nil {
		return err
	}
	regions, err := recipeRegionLinks.load(ctx, r.DB, ids)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].RecipeTypes = types[list[i].ID]
		list[i].Regions = regions[list[i].ID]
	}
	return nil
}

func recipeOrder(sort string) string {
	switch strings.ToLower(sort) {
	case "cooktime_asc":
		return "r.cook_time_minutes ASC, c.created_on DESC, c.id ASC"
	case "cooktime_desc":
		return "r.cook_time_minutes DESC, c.created_on DESC, c.id ASC"
	case "difficulty_asc":
		return "r.difficulty ASC, c.created_on DESC, c.id ASC"
	case "difficulty_desc":
		return "r.difficulty DESC, c.created_on DESC, c.id ASC"
	case "created_desc", "":
		return "c.created_on DESC, c.id ASC"
	}
	return contentOrder(sort)
}

// List returns one page of recipes matching f.
func (r *RecipeRepo) List(ctx context.Context, f RecipeFilter) ([]model.Recipe, int64, error) {
	where, args := contentWhere(model.KindRecipe, f.ContentFilter, "c.title", "c.excerpt", "r.ingredients")
	if s := strings.TrimSpace(f.Title); s != "" {
		where = append(where, "LOWER(c.title) LIKE ?")
		args = append(args, likeArg(s))
	}
	if f.Difficulty != nil {
		where = append(where, "r.difficulty = ?")
		args = append(args, int(*f.Difficulty))
	}
	if len(f.RecipeTypeIDs) > 0 {
		cond, a := recipeTypeClaims.anyOf("r.content_id", f.RecipeTypeIDs)
		where = append(where, cond)
		args = append(args, a...)
	}
	if len(f.RegionIDs) > 0 {
		cond, a := recipeRegionLinks.anyOf("r.content_id", f.RegionIDs)
		where = append(where, cond)
		args = append(args, a...)
	}
	if f.CookTimeMin > 0 {
		where = append(where, "r.cook_time_minutes >= ?")
		args = append(args, f.CookTimeMin)
	}
	if f.CookTimeMax > 0 {
		where = append(where, "r.cook_time_minutes <= ?")
		args = append(args, f.CookTimeMax)
	}
	cond := whereClause(where)

	total, err := countContent(ctx, r.DB, recipeJoin, cond, args)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := f.Page.limitOffset()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+recipeSelect+" "+contentFrom+" "+recipeJoin+" WHERE "+cond+" ORDER BY "+recipeOrder(f.Sort)+" LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.Recipe, 0, limit)
	for rows.Next() {
		rc, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, err
	}
	rows.Close()

	if err := r.attachLinks(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
