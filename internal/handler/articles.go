package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/service"
)

// ArticleHandler serves /api/articles.
type ArticleHandler struct {
	contentRoutes
	Articles *service.ArticleService
}

func NewArticleHandler(articles *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{
		contentRoutes: contentRoutes{content: articles.ContentService, kind: model.KindArticle},
		Articles:      articles,
	}
}

type articleReq struct {
	contentReq
	Body               *string `json:"body"`
	ReadingTimeMinutes *int    `json:"reading_time_minutes"`
	ArticleTypeID      *string `json:"article_type_id"`
}

func (h *ArticleHandler) input(c echo.Context) (service.ArticleInput, error) {
	var req articleReq
	if err := bind(c, &req); err != nil {
		return service.ArticleInput{}, err
	}
	return service.ArticleInput{
		ContentInput:       h.contentRoutes.input(req.contentReq),
		Body:               req.Body,
		ReadingTimeMinutes: req.ReadingTimeMinutes,
		ArticleTypeID:      req.ArticleTypeID,
	}, nil
}

func articleQuery(c echo.Context) service.ArticleQuery {
	return service.ArticleQuery{
		ListQuery: listQuery(c),
		TypeName:  strings.TrimSpace(c.QueryParam("type")),
		AuthorID:  strings.TrimSpace(c.QueryParam("author_id")),
	}
}

// List returns published articles.  ?type= filters by article type name.
func (h *ArticleHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	q := articleQuery(c)
	items, total, err := h.Articles.List(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, q.Page, toArticle))
}

// My returns the caller's own articles in any status.
func (h *ArticleHandler) My(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	q := articleQuery(c)
	items, total, err := h.Articles.My(ctx, actor(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, q.Page, toArticle))
}

func (h *ArticleHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Articles.Get(ctx, c.Param("id"), viewer(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toArticle(a))
}

func (h *ArticleHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Articles.GetBySlug(ctx, c.Param("slug"), viewer(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toArticle(a))
}

func (h *ArticleHandler) Create(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Articles.Create(ctx, in, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toArticle(a))
}

func (h *ArticleHandler) Update(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Articles.Update(ctx, c.Param("id"), in, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toArticle(a))
}

func (h *ArticleHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	return deleted(c, h.Articles.Delete(ctx, c.Param("id"), actor(c)))
}
