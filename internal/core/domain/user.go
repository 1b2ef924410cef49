package domain

import "time"

const (
	RoleDispatcher = "dispatcher"
	RoleLoader     = "loader"
)

// ValidRole reports whether role is one of the two known roles.
func ValidRole(role string) bool {
	return role == RoleDispatcher || role == RoleLoader
}

// User models an actor in the system. Users are not authenticated; they
// exist to attribute orders and scope views.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
