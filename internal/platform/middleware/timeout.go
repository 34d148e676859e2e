package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout returns middleware that puts a deadline on the request
// context. When the deadline passes before the handler finishes, the client
// gets a 504 and the handler's context is cancelled so repository calls give
// up too. Handlers that outlive the deadline must not touch the response;
// they observe ctx.Done and return.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			// The handler runs on its own goroutine so the select below can
			// observe the deadline. A panic there would bypass the recovery
			// middleware on the request goroutine, so it is caught and
			// surfaced as an error.
			done := make(chan error, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- fmt.Errorf("handler panic: %v", r)
					}
				}()
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() != context.DeadlineExceeded {
					// Cancelled for another reason, typically a client
					// disconnect.
					return ctx.Err()
				}
				if c.Response().Committed {
					return nil
				}
				return c.JSON(http.StatusGatewayTimeout, map[string]string{
					"error": "request timed out",
				})
			}
		}
	}
}
