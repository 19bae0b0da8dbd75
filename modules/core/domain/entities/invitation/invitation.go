package invitation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/univault/univault/modules/core/domain/aggregates/user"
)

var (
	ErrNotFound    = errors.New("invitation code not found")
	ErrAlreadyUsed = errors.New("invitation code already used")
	ErrExpired     = errors.New("invitation code expired")
	ErrBadSecret   = errors.New("invitation secret mismatch")
)

const DefaultTTL = 7 * 24 * time.Hour

// Code is a single-use tenant join token. Only the bcrypt hash of the secret
// is ever stored; the plaintext is shown to the issuer exactly once at
// creation. Issuer and consumer identities are stored by value so the code
// stays intelligible after either account is deleted.
type Code struct {
	id             uuid.UUID
	universityID   uuid.UUID
	universityName string
	role           user.Role
	secretHash     []byte
	createdByID    uint
	createdByEmail string
	usedByID       *uint
	usedByEmail    string
	createdAt      time.Time
	expiresAt      time.Time
}

type Option func(*Code)

func WithID(id uuid.UUID) Option {
	return func(c *Code) {
		c.id = id
	}
}

func WithRole(role user.Role) Option {
	return func(c *Code) {
		c.role = role
	}
}

func WithSecretHash(hash []byte) Option {
	return func(c *Code) {
		c.secretHash = hash
	}
}

func WithIssuer(id uint, email string) Option {
	return func(c *Code) {
		c.createdByID = id
		c.createdByEmail = email
	}
}

func WithConsumer(id *uint, email string) Option {
	return func(c *Code) {
		c.usedByID = id
		c.usedByEmail = email
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(c *Code) {
		c.createdAt = createdAt
	}
}

func WithExpiresAt(expiresAt time.Time) Option {
	return func(c *Code) {
		c.expiresAt = expiresAt
	}
}

func New(universityID uuid.UUID, universityName string, opts ...Option) *Code {
	now := time.Now()
	c := &Code{
		id:             uuid.New(),
		universityID:   universityID,
		universityName: universityName,
		role:           user.RoleStandard,
		createdAt:      now,
		expiresAt:      now.Add(DefaultTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Code) ID() uuid.UUID {
	return c.id
}

func (c *Code) UniversityID() uuid.UUID {
	return c.universityID
}

func (c *Code) UniversityName() string {
	return c.universityName
}

func (c *Code) Role() user.Role {
	return c.role
}

func (c *Code) SecretHash() []byte {
	return c.secretHash
}

func (c *Code) CreatedByID() uint {
	return c.createdByID
}

func (c *Code) CreatedByEmail() string {
	return c.createdByEmail
}

func (c *Code) UsedByID() *uint {
	return c.usedByID
}

func (c *Code) UsedByEmail() string {
	return c.usedByEmail
}

func (c *Code) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Code) ExpiresAt() time.Time {
	return c.expiresAt
}

func (c *Code) Used() bool {
	return c.usedByID != nil
}

func (c *Code) Expired(now time.Time) bool {
	return now.After(c.expiresAt)
}

// Inert reports whether the code can no longer be consumed.
func (c *Code) Inert(now time.Time) bool {
	return c.Used() || c.Expired(now)
}

func (c *Code) AuditLabel() string {
	return "invitation for " + c.universityName
}

func (c *Code) Snapshot() map[string]any {
	var usedBy any
	if c.usedByID != nil {
		usedBy = *c.usedByID
	}
	return map[string]any{
		"id":               c.id.String(),
		"university_id":    c.universityID.String(),
		"university_name":  c.universityName,
		"role":             string(c.role),
		"created_by_id":    c.createdByID,
		"created_by_email": c.createdByEmail,
		"used_by_id":       usedBy,
		"used_by_email":    c.usedByEmail,
		"created_at":       c.createdAt,
		"expires_at":       c.expiresAt,
		// named so the serializer's deny-list masks it
		"secret_hash": string(c.secretHash),
	}
}

type Repository interface {
	Create(ctx context.Context, code *Code) error
	GetByID(ctx context.Context, id uuid.UUID) (*Code, error)
	// Consume marks the code used if and only if it is still unused and
	// unexpired. Returns false when another consumer already won.
	Consume(ctx context.Context, id uuid.UUID, usedByID uint, usedByEmail string, now time.Time) (bool, error)
}
