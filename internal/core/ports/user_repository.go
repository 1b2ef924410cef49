package ports

import (
	"context"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

// UserRepository defines persistence for session users.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
