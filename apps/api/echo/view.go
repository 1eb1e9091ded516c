package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-console/core/access"
)

func registerViewAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	g.GET("/views/me", currentView, jwt)
}

// currentView returns the layout, stat cards and capabilities of the authenticated user's role.
func currentView(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, access.ViewFor(p.Role))
}
