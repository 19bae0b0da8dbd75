package university

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/univault/univault/pkg/composables"
)

// University is the tenant scope: an independently administered organization
// owning a subset of theses, members and audit trail.
type University struct {
	id        uuid.UUID
	name      string
	acronym   string
	slug      string
	active    bool
	createdAt time.Time
}

type Option func(*University)

func WithID(id uuid.UUID) Option {
	return func(u *University) {
		u.id = id
	}
}

func WithAcronym(acronym string) Option {
	return func(u *University) {
		u.acronym = acronym
	}
}

func WithSlug(slug string) Option {
	return func(u *University) {
		u.slug = slug
	}
}

func WithActive(active bool) Option {
	return func(u *University) {
		u.active = active
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(u *University) {
		u.createdAt = createdAt
	}
}

func New(name string, opts ...Option) *University {
	u := &University{
		id:        uuid.New(),
		name:      name,
		active:    true,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *University) ID() uuid.UUID {
	return u.id
}

func (u *University) Name() string {
	return u.name
}

func (u *University) Acronym() string {
	return u.acronym
}

func (u *University) Slug() string {
	return u.slug
}

func (u *University) Active() bool {
	return u.active
}

func (u *University) CreatedAt() time.Time {
	return u.createdAt
}

func (u *University) AuditLabel() string {
	if u.acronym != "" {
		return u.acronym
	}
	return u.name
}

// Scope returns the value-copy carried on request contexts and stamped into
// audit records.
func (u *University) Scope() *composables.TenantScope {
	return &composables.TenantScope{ID: u.id, Name: u.name, Slug: u.slug}
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*University, error)
	GetBySlug(ctx context.Context, slug string) (*University, error)
	Create(ctx context.Context, u *University) error
}
