package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

// HeaderUserID carries the acting user's id. There are no tokens and no
// passwords: identity is attribution, not authentication.
const HeaderUserID = "X-User-ID"

// Identity resolves the X-User-ID header against the user store and injects
// the actor's claims into context for downstream handlers and RBAC.
func Identity(users ports.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderUserID)
			if id == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderUserID+" header")
			}

			user, err := users.FindByID(c.Request().Context(), id)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
				}
				return err
			}

			c.Set("user_id", user.ID)
			c.Set("user_name", user.Name)
			c.Set("role", user.Role)

			return next(c)
		}
	}
}
