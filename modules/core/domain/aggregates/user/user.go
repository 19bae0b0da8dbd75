package user

import (
	"strings"
	"time"
)

type Role string

const (
	RoleStandard   Role = "standard"
	RoleProfessor  Role = "professor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
	RoleOwner      Role = "owner"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStandard, RoleProfessor, RoleAdmin, RoleSuperAdmin, RoleOwner:
		return true
	}
	return false
}

// IsElevated reports whether the role carries administrative privileges.
func (r Role) IsElevated() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleOwner:
		return true
	}
	return false
}

// AdminRoles is the closed set of roles the escalation notifier addresses.
var AdminRoles = []Role{RoleAdmin, RoleSuperAdmin, RoleOwner}

type User struct {
	id           uint
	email        string
	firstName    string
	lastName     string
	role         Role
	passwordHash string
	active       bool
	createdAt    time.Time
}

type Option func(*User)

func WithID(id uint) Option {
	return func(u *User) {
		u.id = id
	}
}

func WithRole(role Role) Option {
	return func(u *User) {
		u.role = role
	}
}

func WithName(firstName, lastName string) Option {
	return func(u *User) {
		u.firstName = firstName
		u.lastName = lastName
	}
}

func WithPasswordHash(hash string) Option {
	return func(u *User) {
		u.passwordHash = hash
	}
}

func WithActive(active bool) Option {
	return func(u *User) {
		u.active = active
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(u *User) {
		u.createdAt = createdAt
	}
}

func New(email string, opts ...Option) *User {
	u := &User{
		email:     email,
		role:      RoleStandard,
		active:    true,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *User) ID() uint {
	return u.id
}

func (u *User) Email() string {
	return u.email
}

func (u *User) FirstName() string {
	return u.firstName
}

func (u *User) LastName() string {
	return u.lastName
}

func (u *User) Role() string {
	return string(u.role)
}

func (u *User) SystemRole() Role {
	return u.role
}

func (u *User) PasswordHash() string {
	return u.passwordHash
}

func (u *User) Active() bool {
	return u.active
}

func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

func (u *User) FullName() string {
	full := strings.TrimSpace(u.firstName + " " + u.lastName)
	if full == "" {
		return u.email
	}
	return full
}

func (u *User) IsElevated() bool {
	return u.role.IsElevated()
}

func (u *User) AuditLabel() string {
	return u.FullName()
}

// Snapshot exposes the auditable field map. The password hash is named so the
// serializer's deny-list redacts it even here.
func (u *User) Snapshot() map[string]any {
	return map[string]any{
		"id":            u.id,
		"email":         u.email,
		"first_name":    u.firstName,
		"last_name":     u.lastName,
		"role":          string(u.role),
		"active":        u.active,
		"password_hash": u.passwordHash,
		"created_at":    u.createdAt,
	}
}
