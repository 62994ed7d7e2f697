package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/handler"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
)

// RegisterRoutes registers unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	// Load balancers and monitoring hit /healthz.
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the catalog endpoints.  cache wraps only these
// read-only routes; member data is never cached.
func RegisterPublic(g *echo.Group, a *handler.AttractionHandler, cache echo.MiddlewareFunc) {
	g.GET("/attractions", a.List, cache)
	g.GET("/attraction/:id", a.Get, cache)
	g.GET("/mrts", a.MRTs, cache)
}

// RegisterAuth registers signup, signin and the session probe.  The probe
// only needs the optional member that the /api group already resolves.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler) {
	g.POST("/user", a.Signup)
	g.PUT("/user/auth", a.Signin)
	g.GET("/user/auth", a.Current)
}

// API creates the /api group.  Every request first resolves an optional
// member from its bearer token, so the rate limiter can key on it, then goes
// through the limiter.
func API(e *echo.Echo, tokens middleware.TokenVerifier, limiter echo.MiddlewareFunc) *echo.Group {
	return e.Group("/api", middleware.OptionalMember(tokens), limiter)
}
