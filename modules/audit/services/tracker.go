package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/pkg/snapshot"
)

// TenantResolver maps an entity to the university it belongs to, for entities
// whose tenant cannot be read from the request scope (cron jobs, cross-tenant
// admin endpoints).
type TenantResolver func(ctx context.Context, entity any) (uuid.UUID, string)

// TrackerConfig binds one entity type to its lifecycle actions. Actions left
// empty disable that verb, so read-mostly entities can track deletes only.
type TrackerConfig struct {
	TargetType     string // defaults to the entity's struct name
	CreateAction   auditrecord.Action
	UpdateAction   auditrecord.Action
	DeleteAction   auditrecord.Action
	CreateSeverity auditrecord.Severity
	UpdateSeverity auditrecord.Severity
	DeleteSeverity auditrecord.Severity
	Tenant         TenantResolver
}

// Tracker instruments entity lifecycle changes: services call TrackCreate,
// TrackUpdate or TrackDelete after the mutation has committed, and the
// tracker snapshots the entity, resolves the target identity and hands a
// complete entry to the audit service.
type Tracker struct {
	audit *AuditService
	cfg   TrackerConfig
}

func NewTracker(audit *AuditService, cfg TrackerConfig) *Tracker {
	if cfg.CreateSeverity == "" {
		cfg.CreateSeverity = auditrecord.SeverityLow
	}
	if cfg.UpdateSeverity == "" {
		cfg.UpdateSeverity = auditrecord.SeverityLow
	}
	if cfg.DeleteSeverity == "" {
		cfg.DeleteSeverity = auditrecord.SeverityMedium
	}
	return &Tracker{audit: audit, cfg: cfg}
}

func (t *Tracker) TrackCreate(ctx context.Context, entity any) {
	if t.cfg.CreateAction == "" {
		return
	}
	t.record(ctx, t.cfg.CreateAction, t.cfg.CreateSeverity, entity, nil, snapshot.Serialize(entity))
}

func (t *Tracker) TrackUpdate(ctx context.Context, before, after any) {
	if t.cfg.UpdateAction == "" {
		return
	}
	t.record(ctx, t.cfg.UpdateAction, t.cfg.UpdateSeverity, after, snapshot.Serialize(before), snapshot.Serialize(after))
}

func (t *Tracker) TrackDelete(ctx context.Context, entity any) {
	if t.cfg.DeleteAction == "" {
		return
	}
	t.record(ctx, t.cfg.DeleteAction, t.cfg.DeleteSeverity, entity, snapshot.Serialize(entity), nil)
}

// TrackDenied records a refused attempt against an entity. Callers still
// return their own error; the record is the trail of the attempt, not the
// refusal itself.
func (t *Tracker) TrackDenied(ctx context.Context, entity any, reason string) {
	targetID, targetRepr := snapshot.Identity(entity)
	targetType := t.cfg.TargetType
	if targetType == "" {
		targetType = snapshot.TypeName(entity)
	}

	entry := Entry{
		Action:      auditrecord.AccessDenied,
		Severity:    auditrecord.SeverityHigh,
		TargetType:  targetType,
		TargetID:    targetID,
		TargetRepr:  targetRepr,
		Description: reason,
	}
	if t.cfg.Tenant != nil {
		entry.TenantID, entry.TenantName = t.cfg.Tenant(ctx, entity)
	}
	t.audit.Record(ctx, entry)
}

func (t *Tracker) record(
	ctx context.Context,
	action auditrecord.Action,
	severity auditrecord.Severity,
	entity any,
	previous, next map[string]any,
) {
	targetID, targetRepr := snapshot.Identity(entity)
	targetType := t.cfg.TargetType
	if targetType == "" {
		targetType = snapshot.TypeName(entity)
	}

	entry := Entry{
		Action:        action,
		Severity:      severity,
		TargetType:    targetType,
		TargetID:      targetID,
		TargetRepr:    targetRepr,
		PreviousState: previous,
		NewState:      next,
	}
	if t.cfg.Tenant != nil {
		entry.TenantID, entry.TenantName = t.cfg.Tenant(ctx, entity)
	}
	t.audit.Record(ctx, entry)
}
