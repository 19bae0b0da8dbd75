// Package directory resolves alert audiences inside the tenant hierarchy.
package directory

import (
	"context"

	"github.com/google/uuid"
)

// Recipient is an addressable administrator.
type Recipient struct {
	Email       string
	DisplayName string
}

// Directory answers "who administers tenant X" lookups. Implementations
// return recipients deduplicated by email.
type Directory interface {
	// AdminsOf returns every principal holding an administrative role
	// (admin, superadmin, owner) within the given university.
	AdminsOf(ctx context.Context, universityID uuid.UUID) ([]Recipient, error)
	// GlobalOwners returns system-wide owners, the escalation fallback
	// audience when a tenant has no administrators of its own.
	GlobalOwners(ctx context.Context) ([]Recipient, error)
}
