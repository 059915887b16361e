package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/service"
)

// LikeHandler serves /api/likes.
type LikeHandler struct {
	Likes *service.LikeService
}

func NewLikeHandler(likes *service.LikeService) *LikeHandler {
	return &LikeHandler{Likes: likes}
}

type likeStateDTO struct {
	ContentID  string `json:"content_id"`
	Liked      bool   `json:"liked"`
	LikesCount int64  `json:"likes_count"`
}

func toLikeState(s service.LikeState) likeStateDTO {
	return likeStateDTO{ContentID: s.ContentID, Liked: s.Liked, LikesCount: s.Count}
}

func (h *LikeHandler) ByContent(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := pageFrom(c)
	items, total, err := h.Likes.ByContent(ctx, c.Param("id"), actor(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, p, toLike))
}

func (h *LikeHandler) My(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := pageFrom(c)
	items, total, err := h.Likes.My(ctx, actor(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, p, toLike))
}

// Toggle likes the item, or unlikes it when already liked.
func (h *LikeHandler) Toggle(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	st, err := h.Likes.Toggle(ctx, c.Param("id"), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLikeState(st))
}

func (h *LikeHandler) Check(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	st, err := h.Likes.Check(ctx, c.Param("id"), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLikeState(st))
}
