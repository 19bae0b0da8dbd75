package persistence

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/audit/infrastructure/persistence/models"
)

func toDomainAuditRecord(row *models.AuditRecord) (*auditrecord.AuditRecord, error) {
	opts := []auditrecord.Option{
		auditrecord.WithID(row.ID),
		auditrecord.WithCreatedAt(row.CreatedAt),
		auditrecord.WithActor(row.ActorID, row.ActorEmail, row.ActorRole),
		auditrecord.WithTarget(row.TargetType, row.TargetID, row.TargetRepr),
		auditrecord.WithRequestContext(row.IPAddress, row.UserAgent, row.RequestPath, row.RequestMethod),
		auditrecord.WithDescription(row.Description),
	}

	if row.TenantID != nil {
		tenantID, err := uuid.Parse(*row.TenantID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, auditrecord.WithTenant(tenantID, row.TenantName))
	}
	if len(row.PreviousState) > 0 {
		var state map[string]any
		if err := json.Unmarshal(row.PreviousState, &state); err != nil {
			return nil, err
		}
		opts = append(opts, auditrecord.WithPreviousState(state))
	}
	if len(row.NewState) > 0 {
		var state map[string]any
		if err := json.Unmarshal(row.NewState, &state); err != nil {
			return nil, err
		}
		opts = append(opts, auditrecord.WithNewState(state))
	}

	return auditrecord.New(
		auditrecord.Action(row.Action),
		auditrecord.Severity(row.Severity),
		opts...,
	), nil
}

func toDBAuditRecord(record *auditrecord.AuditRecord) (*models.AuditRecord, error) {
	row := &models.AuditRecord{
		ID:            record.ID(),
		CreatedAt:     record.CreatedAt(),
		ActorID:       record.ActorID(),
		ActorEmail:    record.ActorEmail(),
		ActorRole:     record.ActorRole(),
		Action:        string(record.Action()),
		Severity:      string(record.Severity()),
		TenantName:    record.TenantName(),
		TargetType:    record.TargetType(),
		TargetID:      record.TargetID(),
		TargetRepr:    record.TargetRepr(),
		IPAddress:     record.IPAddress(),
		UserAgent:     record.UserAgent(),
		RequestPath:   record.RequestPath(),
		RequestMethod: record.RequestMethod(),
		Description:   record.Description(),
	}

	if record.TenantID() != uuid.Nil {
		tenantID := record.TenantID().String()
		row.TenantID = &tenantID
	}
	if record.PreviousState() != nil {
		data, err := json.Marshal(record.PreviousState())
		if err != nil {
			return nil, err
		}
		row.PreviousState = data
	}
	if record.NewState() != nil {
		data, err := json.Marshal(record.NewState())
		if err != nil {
			return nil, err
		}
		row.NewState = data
	}
	return row, nil
}
