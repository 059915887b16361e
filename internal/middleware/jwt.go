package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/contenthub/internal/model"
    "github.com/iliyamo/contenthub/internal/service"
    "github.com/iliyamo/contenthub/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller (subject and role claims) on the request context.  It
// should wrap protected routes so that handlers can read the caller via
// ActorFrom(c).  Missing or invalid tokens end the request with 401.
func JWTAuth(tokens *utils.TokenIssuer) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
            }
            actor, err := parseActor(tokens, raw)
            if err != nil {
                return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
            }
            SetActor(c, actor)
            return next(c)
        }
    }
}

// OptionalJWT identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.  Public reads use it so
// authors can see their own drafts.
func OptionalJWT(tokens *utils.TokenIssuer) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw, ok := bearer(c); ok {
                if actor, err := parseActor(tokens, raw); err == nil {
                    SetActor(c, actor)
                }
            }
            return next(c)
        }
    }
}

// bearer reads the token of an "Authorization: Bearer <jwt>" header.
func bearer(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get(echo.HeaderAuthorization)
    if !strings.HasPrefix(auth, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    return raw, raw != ""
}

func parseActor(tokens *utils.TokenIssuer, raw string) (service.Actor, error) {
    claims, err := tokens.ParseAccessToken(raw)
    if err != nil {
        return service.Actor{}, err
    }
    if claims.UserID() == "" {
        return service.Actor{}, utils.ErrInvalidToken
    }
    // Unknown roles are kept so RequireRole rejects them instead of
    // silently promoting anyone.
    role, ok := model.ParseRole(claims.Role)
    if !ok {
        role = model.Role(claims.Role)
    }
    return service.Actor{UserID: claims.UserID(), Role: role}, nil
}
