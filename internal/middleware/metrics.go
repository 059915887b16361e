package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/contenthub/internal/metrics"
)

// Metrics records request count and latency per route template.
func Metrics() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler write the response so the status is final
                c.Error(err)
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            metrics.RecordHTTP(c.Request().Method, route, strconv.Itoa(c.Response().Status), time.Since(start))
            return nil
        }
    }
}
