package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/core/domain/aggregates/user"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/eventbus"
	"github.com/univault/univault/pkg/metrics"
	"github.com/univault/univault/pkg/serrors"
)

var (
	ErrForbidden = serrors.NewError("FORBIDDEN", "insufficient privileges for audit trail access", "Audit.Errors.Forbidden")
)

// Entry is what callers hand to Record. Everything left blank is resolved
// from the request context: actor from the authenticated principal, tenant
// from the request scope, IP/user-agent/path/method from the request params.
type Entry struct {
	Action        auditrecord.Action
	Severity      auditrecord.Severity
	TenantID      uuid.UUID
	TenantName    string
	TargetType    string
	TargetID      string
	TargetRepr    string
	PreviousState map[string]any
	NewState      map[string]any
	Description   string

	// Actor overrides. Leave empty to resolve from the context; set System
	// to skip resolution entirely (cron, migrations, unauthenticated flows).
	ActorID    *uint
	ActorEmail string
	ActorRole  string
	System     bool
}

type AuditService struct {
	repo      auditrecord.Repository
	publisher eventbus.EventBus
}

func NewAuditService(repo auditrecord.Repository, publisher eventbus.EventBus) *AuditService {
	return &AuditService{
		repo:      repo,
		publisher: publisher,
	}
}

// Record persists an audit entry and publishes CreatedEvent for it. It never
// returns an error: the business operation that triggered the entry must not
// fail because its audit trail could not be written, so failures are logged,
// counted and swallowed here.
func (s *AuditService) Record(ctx context.Context, entry Entry) {
	if !entry.Action.IsValid() || !entry.Severity.IsValid() {
		metrics.AuditWriteFailuresTotal.Inc()
		composables.UseLogger(ctx).
			WithField("action", entry.Action).
			WithField("severity", entry.Severity).
			Error("audit entry rejected: unknown action or severity")
		return
	}

	// Callers record after their own transaction has resolved, so a rolled
	// back business operation cannot take security entries (LOGIN_FAILED,
	// ACCESS_DENIED) down with it.
	record := s.build(ctx, entry)
	if err := s.repo.Create(ctx, record); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		composables.UseLogger(ctx).
			WithError(err).
			WithField("action", entry.Action).
			Error("audit record write failed")
		return
	}

	metrics.AuditRecordsTotal.WithLabelValues(string(record.Severity())).Inc()
	s.publisher.Publish(auditrecord.CreatedEvent{Record: record})
}

func (s *AuditService) build(ctx context.Context, entry Entry) *auditrecord.AuditRecord {
	opts := []auditrecord.Option{
		auditrecord.WithTarget(entry.TargetType, entry.TargetID, entry.TargetRepr),
		auditrecord.WithPreviousState(entry.PreviousState),
		auditrecord.WithNewState(entry.NewState),
	}
	if entry.Description != "" {
		opts = append(opts, auditrecord.WithDescription(entry.Description))
	}

	actorID, actorEmail, actorRole := entry.ActorID, entry.ActorEmail, entry.ActorRole
	if actorEmail == "" && !entry.System {
		if principal, err := composables.UseUser(ctx); err == nil {
			id := principal.ID()
			actorID, actorEmail, actorRole = &id, principal.Email(), principal.Role()
		}
	}
	opts = append(opts, auditrecord.WithActor(actorID, actorEmail, actorRole))

	tenantID, tenantName := entry.TenantID, entry.TenantName
	if tenantID == uuid.Nil {
		if scope, err := composables.UseTenant(ctx); err == nil {
			tenantID, tenantName = scope.ID, scope.Name
		}
	}
	if tenantID != uuid.Nil {
		opts = append(opts, auditrecord.WithTenant(tenantID, tenantName))
	}

	if params, ok := composables.UseParams(ctx); ok {
		path, method := "", ""
		if params.Request != nil {
			path, method = params.Request.URL.Path, params.Request.Method
		}
		opts = append(opts, auditrecord.WithRequestContext(params.IP, params.UserAgent, path, method))
	}

	return auditrecord.New(entry.Action, entry.Severity, opts...)
}

// List returns audit records visible to the calling principal. University
// admins are pinned to their own tenant regardless of the filters they pass;
// superadmins and owners query across tenants.
func (s *AuditService) List(ctx context.Context, params *auditrecord.FindParams) ([]*auditrecord.AuditRecord, error) {
	scoped, err := s.scopeParams(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scoped)
}

func (s *AuditService) Count(ctx context.Context, params *auditrecord.FindParams) (int64, error) {
	scoped, err := s.scopeParams(ctx, params)
	if err != nil {
		return 0, err
	}
	return s.repo.Count(ctx, scoped)
}

func (s *AuditService) GetByID(ctx context.Context, id uint) (*auditrecord.AuditRecord, error) {
	principal, err := s.requireElevated(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isGlobal(principal) {
		tenantID, err := composables.UseTenantID(ctx)
		if err != nil || record.TenantID() != tenantID {
			return nil, ErrForbidden
		}
	}
	return record, nil
}

// Delete removes a single record. Owner-only: the trail is append-only for
// everyone else, including superadmins.
func (s *AuditService) Delete(ctx context.Context, id uint) error {
	principal, err := composables.UseUser(ctx)
	if err != nil {
		return ErrForbidden
	}
	if principal.Role() != string(user.RoleOwner) {
		return ErrForbidden
	}
	return s.repo.DeleteByID(ctx, id)
}

func (s *AuditService) scopeParams(ctx context.Context, params *auditrecord.FindParams) (*auditrecord.FindParams, error) {
	principal, err := s.requireElevated(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &auditrecord.FindParams{}
	}
	if isGlobal(principal) {
		return params, nil
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, ErrForbidden
	}
	scoped := *params
	scoped.TenantID = &tenantID
	return &scoped, nil
}

func (s *AuditService) requireElevated(ctx context.Context) (composables.Principal, error) {
	principal, err := composables.UseUser(ctx)
	if err != nil {
		return nil, ErrForbidden
	}
	if !principal.IsElevated() {
		return nil, ErrForbidden
	}
	return principal, nil
}

func isGlobal(principal composables.Principal) bool {
	role := principal.Role()
	return role == string(user.RoleSuperAdmin) || role == string(user.RoleOwner)
}
