package auditrecord

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the closed enumeration of auditable action kinds. New kinds are
// added here, never inferred from free text.
type Action string

const (
	ThesisCreate      Action = "THESIS_CREATE"
	ThesisUpdate      Action = "THESIS_UPDATE"
	ThesisDelete      Action = "THESIS_DELETE"
	ThesisDeleteTotal Action = "THESIS_DELETE_TOTAL"

	UserRoleUpdate Action = "USER_ROLE_UPDATE"
	UserRemove     Action = "USER_REMOVE"
	UserDeactivate Action = "USER_DEACTIVATE"
	UserBulkInvite Action = "USER_BULK_INVITE"

	CommentModerate Action = "COMMENT_MODERATE"
	CommentDelete   Action = "COMMENT_DELETE"
	ReportResolved  Action = "REPORT_RESOLVED"

	UnivLogoUpdate        Action = "UNIV_LOGO_UPDATE"
	UnivLogoDelete        Action = "UNIV_LOGO_DELETE"
	UnivBulkDelete        Action = "UNIV_BULK_DELETE"
	UnivAffiliationCreate Action = "UNIV_AFFILIATION_CREATE"

	FieldCreate Action = "FIELD_CREATE"
	FieldUpdate Action = "FIELD_UPDATE"
	FieldDelete Action = "FIELD_DELETE"

	Login             Action = "LOGIN"
	LoginFailed       Action = "LOGIN_FAILED"
	AccessDenied      Action = "ACCESS_DENIED"
	PasswordReset     Action = "PASSWORD_RESET"
	InvitationCreate  Action = "INVITATION_CREATE"
	InvitationConsume Action = "INVITATION_CONSUME"
)

var allActions = map[Action]struct{}{
	ThesisCreate: {}, ThesisUpdate: {}, ThesisDelete: {}, ThesisDeleteTotal: {},
	UserRoleUpdate: {}, UserRemove: {}, UserDeactivate: {}, UserBulkInvite: {},
	CommentModerate: {}, CommentDelete: {}, ReportResolved: {},
	UnivLogoUpdate: {}, UnivLogoDelete: {}, UnivBulkDelete: {}, UnivAffiliationCreate: {},
	FieldCreate: {}, FieldUpdate: {}, FieldDelete: {},
	Login: {}, LoginFailed: {}, AccessDenied: {}, PasswordReset: {},
	InvitationCreate: {}, InvitationConsume: {},
}

func (a Action) IsValid() bool {
	_, ok := allActions[a]
	return ok
}

// Severity is totally ordered: LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

func (s Severity) IsValid() bool {
	return s.Rank() >= 0
}

func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// AuditRecord is one immutable entry of the trail. Actor, tenant and target
// are stored as value copies so the record stays readable after any of them
// is deleted or renamed. Severity is decided at construction and never
// recomputed.
type AuditRecord struct {
	id        uint
	createdAt time.Time

	actorID    *uint
	actorEmail string
	actorRole  string

	action   Action
	severity Severity

	tenantID   uuid.UUID
	tenantName string

	targetType string
	targetID   string
	targetRepr string

	previousState map[string]any
	newState      map[string]any

	ipAddress     string
	userAgent     string
	requestPath   string
	requestMethod string

	description string
}

type Option func(*AuditRecord)

func WithID(id uint) Option {
	return func(r *AuditRecord) {
		r.id = id
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(r *AuditRecord) {
		r.createdAt = createdAt
	}
}

func WithActor(id *uint, email, role string) Option {
	return func(r *AuditRecord) {
		r.actorID = id
		r.actorEmail = email
		r.actorRole = role
	}
}

func WithTenant(id uuid.UUID, name string) Option {
	return func(r *AuditRecord) {
		r.tenantID = id
		r.tenantName = name
	}
}

func WithTarget(targetType, targetID, targetRepr string) Option {
	return func(r *AuditRecord) {
		r.targetType = targetType
		r.targetID = targetID
		r.targetRepr = targetRepr
	}
}

func WithPreviousState(state map[string]any) Option {
	return func(r *AuditRecord) {
		r.previousState = state
	}
}

func WithNewState(state map[string]any) Option {
	return func(r *AuditRecord) {
		r.newState = state
	}
}

func WithRequestContext(ip, userAgent, path, method string) Option {
	return func(r *AuditRecord) {
		r.ipAddress = ip
		r.userAgent = userAgent
		r.requestPath = path
		r.requestMethod = method
	}
}

func WithDescription(description string) Option {
	return func(r *AuditRecord) {
		r.description = description
	}
}

func New(action Action, severity Severity, opts ...Option) *AuditRecord {
	r := &AuditRecord{
		action:    action,
		severity:  severity,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.description == "" {
		r.description = defaultDescription(r)
	}
	return r
}

func defaultDescription(r *AuditRecord) string {
	actor := r.actorEmail
	if actor == "" {
		actor = "system"
	}
	if r.tenantName != "" {
		return fmt.Sprintf("[%s] %s by %s", r.tenantName, r.action, actor)
	}
	return fmt.Sprintf("%s by %s", r.action, actor)
}

func (r *AuditRecord) ID() uint {
	return r.id
}

func (r *AuditRecord) CreatedAt() time.Time {
	return r.createdAt
}

func (r *AuditRecord) ActorID() *uint {
	return r.actorID
}

func (r *AuditRecord) ActorEmail() string {
	return r.actorEmail
}

func (r *AuditRecord) ActorRole() string {
	return r.actorRole
}

func (r *AuditRecord) Action() Action {
	return r.action
}

func (r *AuditRecord) Severity() Severity {
	return r.severity
}

// TenantID is uuid.Nil for system-wide actions.
func (r *AuditRecord) TenantID() uuid.UUID {
	return r.tenantID
}

func (r *AuditRecord) TenantName() string {
	return r.tenantName
}

func (r *AuditRecord) TargetType() string {
	return r.targetType
}

func (r *AuditRecord) TargetID() string {
	return r.targetID
}

func (r *AuditRecord) TargetRepr() string {
	return r.targetRepr
}

func (r *AuditRecord) PreviousState() map[string]any {
	return r.previousState
}

func (r *AuditRecord) NewState() map[string]any {
	return r.newState
}

func (r *AuditRecord) IPAddress() string {
	return r.ipAddress
}

func (r *AuditRecord) UserAgent() string {
	return r.userAgent
}

func (r *AuditRecord) RequestPath() string {
	return r.requestPath
}

func (r *AuditRecord) RequestMethod() string {
	return r.requestMethod
}

func (r *AuditRecord) Description() string {
	return r.description
}

// String renders the short operator-facing summary used in dry-run samples
// and alert subjects.
func (r *AuditRecord) String() string {
	actor := r.actorEmail
	if actor == "" {
		actor = "system"
	}
	return fmt.Sprintf("[%s] %s by %s at %s", r.severity, r.action, actor, r.createdAt.Format("2006-01-02 15:04"))
}

// CreatedEvent is published on the event bus after a record is persisted.
// Exactly one event is published per inserted record.
type CreatedEvent struct {
	Record *AuditRecord
}

type FindParams struct {
	Action     Action
	Severity   Severity
	TenantID   *uuid.UUID
	ActorID    *uint
	ActorEmail string
	TargetType string
	TargetID   string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, record *AuditRecord) error
	GetByID(ctx context.Context, id uint) (*AuditRecord, error)
	List(ctx context.Context, params *FindParams) ([]*AuditRecord, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// ListOlderThan returns records strictly older than cutoff in insertion
	// order; the retention job archives these before purging.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*AuditRecord, error)
	CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteByID is the operator-only purge path; ordinary surfaces never
	// mutate the trail.
	DeleteByID(ctx context.Context, id uint) error
}
