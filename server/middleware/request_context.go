package middleware

import (
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/calsense/server/internal/observability"
)

// HeaderRequestID carries the request id in and out of the API.
const HeaderRequestID = "X-Request-ID"

// RequestContext attaches an observability.RequestContext to every request, reusing an
// incoming X-Request-ID, and logs the outcome.
func RequestContext(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			var userID int32
			if n, err := strconv.ParseInt(c.Param("user"), 10, 32); err == nil {
				userID = int32(n)
			}
			reqCtx := observability.NewRequestContextWithID(logger, req.Header.Get(HeaderRequestID), c.Path(), userID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))
			c.Response().Header().Set(HeaderRequestID, reqCtx.RequestID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			reqCtx.Info(req.Context(), "request served",
				slog.String("method", req.Method),
				slog.Int("status", c.Response().Status),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
			return nil
		}
	}
}
