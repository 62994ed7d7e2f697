package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/handler"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
)

// RegisterMember registers the member-scoped booking and order endpoints.
// All of them require a valid token and answer 401 with the common error
// envelope otherwise.
func RegisterMember(g *echo.Group, b *handler.BookingHandler, o *handler.OrderHandler, tokens middleware.TokenVerifier) {
	auth := middleware.RequireMember(tokens)

	g.GET("/booking", b.Get, auth)
	g.POST("/booking", b.Create, auth)
	g.DELETE("/booking", b.Delete, auth)

	g.POST("/order", o.Create, auth)
	g.GET("/order/:orderNumber", o.Get, auth)
}
