package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/access"
)

// allow rejects the requests of principals that may perform none of actions.
// Services still authorize every call; this only turns whole route groups away early.
func allow(actions ...access.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, action := range actions {
				if access.Can(claims.Role, action) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
