package service

import (
	"context"
	"strings"

	"github.com/iliyamo/contenthub/internal/metrics"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
)

// RecipeService implements the recipe endpoints.
type RecipeService struct {
	*ContentService
}

func NewRecipeService(content *ContentService) *RecipeService {
	return &RecipeService{ContentService: content}
}

// RecipeQuery filters recipe listings.  Difficulty is a name (Easy,
// Medium, Hard) or empty.
type RecipeQuery struct {
	ListQuery
	Title         string
	Difficulty    string
	RecipeTypeIDs []string
	RegionIDs     []string
	CookTimeMin   int
	CookTimeMax   int
}

func (q RecipeQuery) filter(owner string) (repository.RecipeFilter, error) {
	cf, err := q.ListQuery.filter(owner)
	if err != nil {
		return repository.RecipeFilter{}, err
	}
	f := repository.RecipeFilter{
		ContentFilter: cf,
		Title:         q.Title,
		RecipeTypeIDs: dedupe(q.RecipeTypeIDs),
		RegionIDs:     dedupe(q.RegionIDs),
		CookTimeMin:   q.CookTimeMin,
		CookTimeMax:   q.CookTimeMax,
	}
	if q.Difficulty != "" {
		d, ok := model.ParseDifficulty(q.Difficulty)
		if !ok {
			return f, errValidation("difficulty", "must be one of Easy, Medium, Hard")
		}
		f.Difficulty = &d
	}
	if q.CookTimeMin > 0 && q.CookTimeMax > 0 && q.CookTimeMin > q.CookTimeMax {
		return f, errValidation("cook_time_min", "must not exceed cook_time_max")
	}
	return f, nil
}

// RecipeInput carries create/update fields; nil means unchanged.
type RecipeInput struct {
	ContentInput
	Difficulty      *string
	Ingredients     *string
	Instructions    *string
	CookTimeMinutes *int
	RecipeTypeIDs   *[]string
	RegionIDs       *[]string
}

func (in RecipeInput) validate(creating bool) error {
	fe := FieldErrors{}
	in.ContentInput.validate(fe, creating)
	if in.Difficulty != nil {
		_, ok := model.ParseDifficulty(*in.Difficulty)
		fe.Check(ok, "difficulty", "must be one of Easy, Medium, Hard")
	}
	if in.Ingredients != nil || creating {
		fe.Check(in.Ingredients != nil && strings.TrimSpace(*in.Ingredients) != "", "ingredients", "is required")
	}
	if in.Instructions != nil || creating {
		fe.Check(in.Instructions != nil && strings.TrimSpace(*in.Instructions) != "", "instructions", "is required")
	}
	if in.CookTimeMinutes != nil || creating {
		fe.Check(in.CookTimeMinutes != nil && *in.CookTimeMinutes >= 1 && *in.CookTimeMinutes <= 1440,
			"cook_time_minutes", "must be between 1 and 1440")
	}
	return fe.Err()
}

func (in RecipeInput) apply(r *model.Recipe) bool {
	titleChanged := in.ContentInput.apply(&r.Content)
	if in.Difficulty != nil {
		r.Difficulty, _ = model.ParseDifficulty(*in.Difficulty)
	}
	if in.Ingredients != nil {
		r.Ingredients = *in.Ingredients
	}
	if in.Instructions != nil {
		r.Instructions = *in.Instructions
	}
	if in.CookTimeMinutes != nil {
		r.CookTimeMinutes = *in.CookTimeMinutes
	}
	return titleChanged
}

// links validates and resolves the taxonomy ids that are set on in.
func (in RecipeInput) links(ctx context.Context, tx *repository.Store, r *model.Recipe) error {
	var err error
	if in.RecipeTypeIDs != nil {
		if r.RecipeTypes, err = checkTaxa(ctx, tx, model.TaxonomyRecipeType, *in.RecipeTypeIDs); err != nil {
			return err
		}
	}
	if in.RegionIDs != nil {
		if r.Regions, err = checkTaxa(ctx, tx, model.TaxonomyRegion, *in.RegionIDs); err != nil {
			return err
		}
	}
	return nil
}

// List returns published recipes.
func (s *RecipeService) List(ctx context.Context, q RecipeQuery) ([]model.Recipe, int64, error) {
	f, err := q.filter("")
	if err != nil {
		return nil, 0, err
	}
	return s.store.Recipes.List(ctx, f)
}

// My returns every recipe of actor.
func (s *RecipeService) My(ctx context.Context, actor Actor, q RecipeQuery) ([]model.Recipe, int64, error) {
	if actor.Anonymous() {
		return nil, 0, errUnauthorized("authentication required")
	}
	f, err := q.filter(actor.UserID)
	if err != nil {
		return nil, 0, err
	}
	return s.store.Recipes.List(ctx, f)
}

// Get returns one recipe and records a view when it is published.
func (s *RecipeService) Get(ctx context.Context, id string, viewer Viewer) (model.Recipe, error) {
	if _, err := s.readable(ctx, model.KindRecipe, id, viewer); err != nil {
		return model.Recipe{}, err
	}
	r, err := s.store.Recipes.Get(ctx, id)
	if err != nil {
		return model.Recipe{}, notFoundOr(err, string(model.KindRecipe), id)
	}
	s.recordView(ctx, &r.Content, viewer)
	return r, nil
}

// GetBySlug is Get addressed by slug.
func (s *RecipeService) GetBySlug(ctx context.Context, slug string, viewer Viewer) (model.Recipe, error) {
	id, err := s.ResolveSlug(ctx, model.KindRecipe, slug, viewer)
	if err != nil {
		return model.Recipe{}, err
	}
	return s.Get(ctx, id, viewer)
}

// Create stores a new recipe owned by actor.
func (s *RecipeService) Create(ctx context.Context, in RecipeInput, actor Actor) (model.Recipe, error) {
	if actor.Anonymous() {
		return model.Recipe{}, errUnauthorized("authentication required")
	}
	if err := in.validate(true); err != nil {
		return model.Recipe{}, err
	}
	var r model.Recipe
	r.UserID = actor.UserID
	in.apply(&r)

	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		if err := in.links(ctx, tx, &r); err != nil {
			return err
		}
		slug, err := s.slugFor(ctx, tx, model.KindRecipe, r.Title, "")
		if err != nil {
			return err
		}
		r.Slug = slug
		if err := tx.Recipes.Create(ctx, &r); err != nil {
			if isDuplicate(err) {
				return errConflict("slug %q already in use", r.Slug)
			}
			return err
		}
		r, err = tx.Recipes.Get(ctx, r.ID)
		return err
	})
	if err != nil {
		return model.Recipe{}, err
	}
	metrics.RecordContent(string(model.KindRecipe), "created")
	if r.Published() {
		s.published(ctx, r.Content, actor)
	}
	s.logger.Info("recipe created", "content_id", r.ID, "user_id", actor.UserID)
	return r, nil
}

// Update applies the set fields of in.
func (s *RecipeService) Update(ctx context.Context, id string, in RecipeInput, actor Actor) (model.Recipe, error) {
	if err := in.validate(false); err != nil {
		return model.Recipe{}, err
	}
	var (
		r         model.Recipe
		published bool
	)
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		cur, err := s.meta(ctx, tx, model.KindRecipe, id)
		if err != nil {
			return err
		}
		if err := Authorize(cur.UserID, actor); err != nil {
			return err
		}
		r, err = tx.Recipes.Get(ctx, id)
		if err != nil {
			return notFoundOr(err, string(model.KindRecipe), id)
		}
		wasPublished := r.Published()
		if in.apply(&r) {
			if r.Slug, err = s.slugFor(ctx, tx, model.KindRecipe, r.Title, r.ID); err != nil {
				return err
			}
		}
		if err := in.links(ctx, tx, &r); err != nil {
			return err
		}
		if err := tx.Recipes.Update(ctx, &r); err != nil {
			if isDuplicate(err) {
				return errConflict("slug %q already in use", r.Slug)
			}
			return notFoundOr(err, string(model.KindRecipe), id)
		}
		published = !wasPublished && r.Published()
		r, err = tx.Recipes.Get(ctx, id)
		return err
	})
	if err != nil {
		return model.Recipe{}, err
	}
	metrics.RecordContent(string(model.KindRecipe), "updated")
	if published {
		s.published(ctx, r.Content, actor)
	}
	return r, nil
}

// Delete removes a recipe with its image.
func (s *RecipeService) Delete(ctx context.Context, id string, actor Actor) error {
	return s.ContentService.Delete(ctx, model.KindRecipe, id, actor)
}

// ChangeStatus sets the publication status of a recipe.
func (s *RecipeService) ChangeStatus(ctx context.Context, id string, status model.Status, actor Actor) (model.Content, error) {
	return s.ContentService.ChangeStatus(ctx, model.KindRecipe, id, status, actor)
}

// UploadImage stores the image of a recipe, replacing the old one.
func (s *RecipeService) UploadImage(ctx context.Context, id string, up Upload, actor Actor) (model.Recipe, error) {
	c, err := s.meta(ctx, s.store, model.KindRecipe, id)
	if err != nil {
		return model.Recipe{}, err
	}
	if err := Authorize(c.UserID, actor); err != nil {
		return model.Recipe{}, err
	}
	r, err := s.store.Recipes.Get(ctx, id)
	if err != nil {
		return model.Recipe{}, notFoundOr(err, string(model.KindRecipe), id)
	}
	blobID, err := s.files.SaveImage(ctx, up)
	if err != nil {
		return model.Recipe{}, err
	}
	if err := s.store.Recipes.SetImage(ctx, id, &blobID); err != nil {
		s.files.Remove(ctx, blobID)
		return model.Recipe{}, notFoundOr(err, string(model.KindRecipe), id)
	}
	if r.ImageID != nil {
		s.files.Remove(ctx, *r.ImageID)
	}
	metrics.RecordContent(string(model.KindRecipe), "image_uploaded")
	return s.store.Recipes.Get(ctx, id)
}
