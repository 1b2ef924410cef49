package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

// CreateUser bootstraps a session actor. Users carry no credentials; they
// exist so orders and views can be attributed to someone.
func (e *Engine) CreateUser(ctx context.Context, name, role string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be blank", domain.ErrValidation)
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be %s or %s", domain.ErrValidation, domain.RoleDispatcher, domain.RoleLoader)
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.users.Create(ctx, user); err != nil {
		e.log.Error().Err(err).Msg("failed to create user")
		return nil, err
	}

	e.log.Info().Str("user_id", user.ID).Str("role", role).Msg("user created")
	return user, nil
}

// GetUser retrieves a user by id.
func (e *Engine) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return e.users.FindByID(ctx, id)
}
