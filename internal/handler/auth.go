package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/service"
)

// AuthHandler exposes registration, login and the refresh-token flow.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	// Login accepts either the username or the email here.
	UsernameOrEmail string `json:"username_or_email"`
	Email           string `json:"email"`
	Password        string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    userDTO   `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toAuth(r service.AuthResult) authResp {
	return authResp{
		User:    toUser(r.User),
		Access:  tokenPart{Token: r.Tokens.AccessToken, Expires: r.Tokens.AccessExpiresAt},
		Refresh: tokenPart{Token: r.Tokens.RefreshToken, Expires: r.Tokens.RefreshExpiresAt},
	}
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, service.RegisterInput{
		Username: req.Username, Email: req.Email, Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAuth(res))
}

// Login: verify credentials and issue a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	id := req.UsernameOrEmail
	if id == "" {
		id = req.Email
	}
	if id == "" || req.Password == "" {
		return errBadRequest("username_or_email and password are required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, id, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuth(res))
}

// Refresh: exchange a refresh token for a new pair.  The old token is
// consumed even when the response never reaches the client.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.RefreshToken == "" {
		return errBadRequest("refresh_token is required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuth(res))
}

// Logout revokes the given refresh token of the caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.RefreshToken == "" {
		return errBadRequest("refresh_token is required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, actor(c).UserID, req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every active refresh token of the caller.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	n, err := h.Auth.LogoutAll(ctx, actor(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}

// Me returns the profile behind the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Auth.CurrentUser(ctx, actor(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}
