package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RBAC gates a route to the given roles. Identity must run first: the
// role is read from the context it populates, so an order-posting route
// passes "dispatcher" and a claim route passes "loader". A request whose
// role is absent or not listed is rejected with 403.
func RBAC(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
