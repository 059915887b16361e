package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/service"
)

// RecipeHandler serves /api/recipes.
type RecipeHandler struct {
	contentRoutes
	Recipes *service.RecipeService
}

func NewRecipeHandler(recipes *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{
		contentRoutes: contentRoutes{content: recipes.ContentService, kind: model.KindRecipe},
		Recipes:       recipes,
	}
}

type recipeReq struct {
	contentReq
	Difficulty      *string   `json:"difficulty"`
	Ingredients     *string   `json:"ingredients"`
	Instructions    *string   `json:"instructions"`
	CookTimeMinutes *int      `json:"cook_time_minutes"`
	RecipeTypeIDs   *[]string `json:"recipe_type_ids"`
	RegionIDs       *[]string `json:"region_ids"`
}

func (h *RecipeHandler) input(c echo.Context) (service.RecipeInput, error) {
	var req recipeReq
	if err := bind(c, &req); err != nil {
		return service.RecipeInput{}, err
	}
	return service.RecipeInput{
		ContentInput:    h.contentRoutes.input(req.contentReq),
		Difficulty:      req.Difficulty,
		Ingredients:     req.Ingredients,
		Instructions:    req.Instructions,
		CookTimeMinutes: req.CookTimeMinutes,
		RecipeTypeIDs:   req.RecipeTypeIDs,
		RegionIDs:       req.RegionIDs,
	}, nil
}

func recipeQuery(c echo.Context) service.RecipeQuery {
	return service.RecipeQuery{
		ListQuery:     listQuery(c),
		Title:         strings.TrimSpace(c.QueryParam("title")),
		Difficulty:    strings.TrimSpace(c.QueryParam("difficulty")),
		RecipeTypeIDs: queryList(c, "recipe_type_ids"),
		RegionIDs:     queryList(c, "region_ids"),
		CookTimeMin:   queryInt(c, "cook_time_min"),
		CookTimeMax:   queryInt(c, "cook_time_max"),
	}
}

func (h *RecipeHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	q := recipeQuery(c)
	items, total, err := h.Recipes.List(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, q.Page, toRecipe))
}

func (h *RecipeHandler) My(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	q := recipeQuery(c)
	items, total, err := h.Recipes.My(ctx, actor(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, q.Page, toRecipe))
}

func (h *RecipeHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.Recipes.Get(ctx, c.Param("id"), viewer(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRecipe(r))
}

func (h *RecipeHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.Recipes.GetBySlug(ctx, c.Param("slug"), viewer(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRecipe(r))
}

func (h *RecipeHandler) Create(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.Recipes.Create(ctx, in, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRecipe(r))
}

func (h *RecipeHandler) Update(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.Recipes.Update(ctx, c.Param("id"), in, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRecipe(r))
}

func (h *RecipeHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	return deleted(c, h.Recipes.Delete(ctx, c.Param("id"), actor(c)))
}

// UploadImage takes the multipart field "image".
func (h *RecipeHandler) UploadImage(c echo.Context) error {
	up, closer, err := upload(c, "image")
	if err != nil {
		return err
	}
	defer closer.Close()

	r, err := h.Recipes.UploadImage(c.Request().Context(), c.Param("id"), up, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRecipe(r))
}
