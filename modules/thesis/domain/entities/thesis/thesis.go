package thesis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("thesis not found")

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusFlagged   Status = "flagged"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusFlagged:
		return true
	}
	return false
}

type Thesis struct {
	id           uint
	universityID uuid.UUID
	title        string
	author       string
	year         int
	status       Status
	createdAt    time.Time
	updatedAt    time.Time
}

type Option func(*Thesis)

func WithID(id uint) Option {
	return func(t *Thesis) {
		t.id = id
	}
}

func WithAuthor(author string, year int) Option {
	return func(t *Thesis) {
		t.author = author
		t.year = year
	}
}

func WithStatus(status Status) Option {
	return func(t *Thesis) {
		t.status = status
	}
}

func WithTimestamps(createdAt, updatedAt time.Time) Option {
	return func(t *Thesis) {
		t.createdAt = createdAt
		t.updatedAt = updatedAt
	}
}

func New(universityID uuid.UUID, title string, opts ...Option) *Thesis {
	t := &Thesis{
		universityID: universityID,
		title:        title,
		status:       StatusDraft,
		createdAt:    time.Now(),
		updatedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Thesis) ID() uint {
	return t.id
}

func (t *Thesis) UniversityID() uuid.UUID {
	return t.universityID
}

func (t *Thesis) Title() string {
	return t.title
}

func (t *Thesis) Author() string {
	return t.author
}

func (t *Thesis) Year() int {
	return t.year
}

func (t *Thesis) Status() Status {
	return t.status
}

func (t *Thesis) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Thesis) UpdatedAt() time.Time {
	return t.updatedAt
}

func (t *Thesis) AuditLabel() string {
	return t.title
}

func (t *Thesis) Snapshot() map[string]any {
	return map[string]any{
		"id":            t.id,
		"university_id": t.universityID.String(),
		"title":         t.title,
		"author":        t.author,
		"year":          t.year,
		"status":        string(t.status),
		"created_at":    t.createdAt,
		"updated_at":    t.updatedAt,
	}
}

// WithChanges returns a copy with the given mutations applied, leaving the
// receiver untouched so before/after snapshots stay distinct.
func (t *Thesis) WithChanges(opts ...Option) *Thesis {
	clone := *t
	clone.updatedAt = time.Now()
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

func WithTitle(title string) Option {
	return func(t *Thesis) {
		t.title = title
	}
}

type Repository interface {
	GetByID(ctx context.Context, id uint) (*Thesis, error)
	ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]*Thesis, error)
	Create(ctx context.Context, entity *Thesis) error
	Update(ctx context.Context, entity *Thesis) error
	Delete(ctx context.Context, id uint) error
}
