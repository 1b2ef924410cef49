package handler

import "github.com/labstack/echo/v4"

// actor is the authenticated identity resolved by the Identity middleware.
type actor struct {
	ID   string
	Name string
	Role string
}

// actorFrom reads the identity placed on the context by middleware.Identity.
func actorFrom(c echo.Context) actor {
	a := actor{}
	if v, ok := c.Get("user_id").(string); ok {
		a.ID = v
	}
	if v, ok := c.Get("user_name").(string); ok {
		a.Name = v
	}
	if v, ok := c.Get("role").(string); ok {
		a.Role = v
	}
	return a
}
