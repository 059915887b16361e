package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/service"
)

// contentRoutes holds the endpoints every content kind shares.
type contentRoutes struct {
	content *service.ContentService
	kind    model.Kind
}

func (r contentRoutes) input(req contentReq) service.ContentInput {
	return service.ContentInput{Title: req.Title, Excerpt: req.Excerpt, Status: req.Status}
}

// Status handles PATCH /:id/status with body {"status": "..."}.
func (r contentRoutes) Status(c echo.Context) error {
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	item, err := r.content.ChangeStatus(ctx, r.kind, c.Param("id"), model.Status(req.Status), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContent(item))
}

func (r contentRoutes) Comments(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := pageFrom(c)
	items, total, err := r.content.Comments(ctx, r.kind, c.Param("id"), actor(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, p, toComment))
}

func (r contentRoutes) Likes(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := pageFrom(c)
	items, total, err := r.content.Likes(ctx, r.kind, c.Param("id"), actor(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, p, toLike))
}

func deleted(c echo.Context, err error) error {
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
