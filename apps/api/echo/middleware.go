package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// subjectRequiredMiddleware rejects valid tokens that do not identify anyone.
func subjectRequiredMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.Subject == "" {
			return errUnauthorized
		}
		return next(ctx)
	}
}
