package middleware

// identity.go holds the context key JWTAuth fills and the helpers that
// read them back.  Handlers, the rate limiter and the cache all identify
// the caller through ActorFrom.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/contenthub/internal/service"
)

const ctxActor = "actor"

// SetActor stores the authenticated caller on the request context.
func SetActor(c echo.Context, a service.Actor) {
    c.Set(ctxActor, a)
}

// ActorFrom returns the caller stored by JWTAuth or OptionalJWT.  The zero
// Actor means an anonymous request.
func ActorFrom(c echo.Context) service.Actor {
    if a, ok := c.Get(ctxActor).(service.Actor); ok {
        return a
    }
    return service.Actor{}
}

// currentUserID is the caller id for rate limit keys, "anon" when unknown.
func currentUserID(c echo.Context) string {
    if id := ActorFrom(c).UserID; id != "" {
        return id
    }
    return "anon"
}
