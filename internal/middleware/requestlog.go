package middleware

import (
    "log/slog"
    "time"

    "github.com/labstack/echo/v4"
)

// RequestLogger writes one structured line per request.  It runs after
// echo's RequestID middleware and reads the id from the response header.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
    if logger == nil {
        logger = slog.Default()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            status := c.Response().Status
            attrs := []any{
                "method", c.Request().Method,
                "route", c.Path(),
                "status", status,
                "latency_ms", time.Since(start).Milliseconds(),
                "request_id", c.Response().Header().Get(echo.HeaderXRequestID),
                "ip", c.RealIP(),
            }
            if uid := ActorFrom(c).UserID; uid != "" {
                attrs = append(attrs, "user_id", uid)
            }
            switch {
            case status >= 500:
                logger.Error("request", append(attrs, "error", err)...)
            case status >= 400:
                logger.Warn("request", attrs...)
            default:
                logger.Info("request", attrs...)
            }
            return nil
        }
    }
}
