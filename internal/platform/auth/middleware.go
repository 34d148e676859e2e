package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// unauthorizedMessage is the single body returned for every authentication
// failure. Missing header, bad scheme, expired token, and forged token are
// indistinguishable from outside.
const unauthorizedMessage = "authentication required"

// Middleware authenticates every request whose path is not public and
// stores the resulting principal on the request context.
func Middleware(g *Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}

			var credential string
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				credential = strings.TrimSpace(parts[1])
			}

			p, err := g.Authenticate(credential)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, unauthorizedMessage)
			}

			ctx := ContextWithPrincipal(c.Request().Context(), p)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRole returns middleware that rejects principals whose role is not
// in the allowed set.
func RequireRole(g *Gate, roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, unauthorizedMessage)
			}
			if err := g.Authorize(p, roles...); err != nil {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required role: %s", joinRoles(roles)))
			}
			return next(c)
		}
	}
}

// RequireRelationship returns middleware for routes whose named path
// parameter is a patient id. It enforces the relationship rule before the
// handler runs.
func RequireRelationship(g *Gate, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, unauthorizedMessage)
			}

			patientID, err := uuid.Parse(c.Param(param))
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
			}

			if err := g.AuthorizeRelationship(c.Request().Context(), p, patientID); err != nil {
				if errors.Is(err, ErrForbidden) {
					return echo.NewHTTPError(http.StatusForbidden, "forbidden")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
			}
			return next(c)
		}
	}
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
