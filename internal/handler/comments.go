package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/service"
)

// CommentHandler serves /api/comments.
type CommentHandler struct {
	Comments *service.CommentService
}

func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{Comments: comments}
}

type commentReq struct {
	ContentID string  `json:"content_id"`
	ParentID  *string `json:"parent_id"`
	Text      string  `json:"text"`
}

type commentTextReq struct {
	Text string `json:"text"`
}

func (h *CommentHandler) ByContent(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := pageFrom(c)
	items, total, err := h.Comments.ListByContent(ctx, c.Param("id"), actor(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, p, toComment))
}

func (h *CommentHandler) ByUser(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := pageFrom(c)
	items, total, err := h.Comments.ListByUser(ctx, c.Param("id"), actor(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, p, toComment))
}

func (h *CommentHandler) Create(c echo.Context) error {
	var req commentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	m, err := h.Comments.Create(ctx, service.CommentInput{
		ContentID: req.ContentID, ParentID: req.ParentID, Text: req.Text,
	}, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toComment(m))
}

func (h *CommentHandler) Update(c echo.Context) error {
	var req commentTextReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	m, err := h.Comments.Update(ctx, c.Param("id"), req.Text, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toComment(m))
}

func (h *CommentHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	return deleted(c, h.Comments.Delete(ctx, c.Param("id"), actor(c)))
}
