package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/contenthub/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated caller has one of the given roles.  It must run after
// JWTAuth.  Anonymous callers get 401, callers with any other role 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            a := ActorFrom(c)
            if a.Anonymous() {
                return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
            }
            if !allowed[a.Role] {
                return echo.NewHTTPError(http.StatusForbidden, "forbidden")
            }
            return next(c)
        }
    }
}
