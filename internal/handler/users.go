package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/service"
)

// UserHandler serves the user administration endpoints.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

type updateUserReq struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// List returns a page of users.  Admin only.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := pageFrom(c)
	users, total, err := h.Users.List(ctx, actor(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(users, total, p, toUser))
}

func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// Update changes the profile.  The owner or an admin may call it.
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.Update(ctx, c.Param("id"), service.UpdateUserInput{
		Username: req.Username, Email: req.Email,
	}, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Users.Delete(ctx, c.Param("id"), actor(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadAvatar replaces the avatar from the multipart field "avatar".
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	up, closer, err := upload(c, "avatar")
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.UploadAvatar(ctx, c.Param("id"), up, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// Avatar streams the avatar image.
func (h *UserHandler) Avatar(c echo.Context) error {
	obj, err := h.Users.Avatar(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return stream(c, obj, "")
}
