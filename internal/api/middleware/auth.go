package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Auth verifies the bearer access token and stores its subject in the request
// context. Every verification failure looks the same to the caller.
func Auth(codec ports.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				return domain.ErrMissingAccessToken
			}

			userID, err := codec.Verify(token)
			if err != nil {
				return domain.ErrInvalidAccessToken
			}

			req := c.Request()
			c.SetRequest(req.WithContext(handler.WithUserID(req.Context(), userID)))
			return next(c)
		}
	}
}
