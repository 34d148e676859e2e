package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger returns middleware that emits one structured line per request once
// the handler chain has finished. Handler errors log at error level with the
// error attached; the status field reflects what the client will see even
// when the error response has not been committed yet.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			begin := time.Now()

			err := next(c)

			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", responseStatus(c, err)).
				Int64("bytes_out", c.Response().Size).
				Str("remote_ip", c.RealIP()).
				Dur("elapsed", time.Since(begin)).
				Msg("request")

			return err
		}
	}
}
