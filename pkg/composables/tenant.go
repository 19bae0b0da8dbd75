package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/univault/univault/pkg/constants"
)

var ErrNoTenant = errors.New("no tenant scope found in context")

// TenantScope is the value-copy of the owning university carried on the
// request context. Name is cached at resolution time so audit records stay
// displayable after the university itself is renamed or deleted.
type TenantScope struct {
	ID   uuid.UUID
	Name string
	Slug string
}

func WithTenant(ctx context.Context, scope *TenantScope) context.Context {
	return context.WithValue(ctx, constants.TenantScopeKey, scope)
}

func UseTenant(ctx context.Context) (*TenantScope, error) {
	scope, ok := ctx.Value(constants.TenantScopeKey).(*TenantScope)
	if !ok || scope == nil {
		return nil, ErrNoTenant
	}
	return scope, nil
}

func WithTenantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, id)
}

func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	if id, ok := ctx.Value(constants.TenantIDKey).(uuid.UUID); ok {
		return id, nil
	}
	if scope, err := UseTenant(ctx); err == nil {
		return scope.ID, nil
	}
	return uuid.Nil, ErrNoTenant
}
