package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
)

// RequireRole lets the request through only when JWTAuth stored one of
// roles. It must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, role, ok := CurrentUser(c); !ok || !allowed[role] {
				return apperr.New(apperr.CodeForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
