package membership

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/univault/univault/modules/core/domain/aggregates/user"
)

// Membership assigns a user a role inside one university.
type Membership struct {
	ID           uint
	UserID       uint
	UniversityID uuid.UUID
	Role         user.Role
	CreatedAt    time.Time
}

type Repository interface {
	Assign(ctx context.Context, m *Membership) error
	Remove(ctx context.Context, userID uint, universityID uuid.UUID) error
	RoleOf(ctx context.Context, userID uint, universityID uuid.UUID) (user.Role, error)
}
