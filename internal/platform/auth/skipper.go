package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are the endpoints reachable without credentials: the
// infrastructure probes, and login itself, which has to work before the
// caller holds a token. Matching is exact, so no parameterized API route can
// ever be public.
var publicPaths = map[string]bool{
	"/health":     true,
	"/health/db":  true,
	"/metrics":    true,
	"/auth/login": true,
}

// AuthSkipper reports whether the request may bypass authentication. The
// middleware consults it before demanding a bearer token.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
