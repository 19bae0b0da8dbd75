package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/audit/infrastructure/persistence/models"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/repo"
)

var ErrRecordNotFound = errors.New("audit record not found")

const auditColumns = `id, created_at, actor_id, actor_email, actor_role, action, severity,
	tenant_id, tenant_name, target_type, target_id, target_repr,
	previous_state, new_state, ip_address, user_agent, request_path, request_method, description`

// AuditRecordRepository is the append-only store. Nothing here updates a
// persisted row; the only deletes are the retention purge and the
// operator-only DeleteByID.
type AuditRecordRepository struct{}

func NewAuditRecordRepository() auditrecord.Repository {
	return &AuditRecordRepository{}
}

func (r *AuditRecordRepository) Create(ctx context.Context, record *auditrecord.AuditRecord) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow, err := toDBAuditRecord(record)
	if err != nil {
		return err
	}
	if dbRow.CreatedAt.IsZero() {
		dbRow.CreatedAt = time.Now()
	}

	var id uint
	var createdAt time.Time
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO audit_records
		 (created_at, actor_id, actor_email, actor_role, action, severity,
		  tenant_id, tenant_name, target_type, target_id, target_repr,
		  previous_state, new_state, ip_address, user_agent, request_path, request_method, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING id, created_at`,
		dbRow.CreatedAt,
		dbRow.ActorID,
		dbRow.ActorEmail,
		dbRow.ActorRole,
		dbRow.Action,
		dbRow.Severity,
		dbRow.TenantID,
		dbRow.TenantName,
		dbRow.TargetType,
		dbRow.TargetID,
		dbRow.TargetRepr,
		dbRow.PreviousState,
		dbRow.NewState,
		dbRow.IPAddress,
		dbRow.UserAgent,
		dbRow.RequestPath,
		dbRow.RequestMethod,
		dbRow.Description,
	).Scan(&id, &createdAt); err != nil {
		return err
	}

	auditrecord.WithID(id)(record)
	auditrecord.WithCreatedAt(createdAt)(record)
	return nil
}

func (r *AuditRecordRepository) GetByID(ctx context.Context, id uint) (*auditrecord.AuditRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row, err := scanAuditRow(tx.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return toDomainAuditRecord(row)
}

func (r *AuditRecordRepository) List(ctx context.Context, params *auditrecord.FindParams) ([]*auditrecord.AuditRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildAuditFilters(params)
	query := `SELECT ` + auditColumns + ` FROM audit_records WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditRows(rows)
}

func (r *AuditRecordRepository) Count(ctx context.Context, params *auditrecord.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	where, args := buildAuditFilters(params)
	var count int64
	if err := tx.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM audit_records WHERE `+strings.Join(where, " AND "),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AuditRecordRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*auditrecord.AuditRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(
		ctx,
		`SELECT `+auditColumns+` FROM audit_records WHERE created_at < $1 ORDER BY id`,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditRows(rows)
}

func (r *AuditRecordRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM audit_records WHERE created_at < $1`, cutoff).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AuditRecordRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM audit_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *AuditRecordRepository) DeleteByID(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM audit_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func scanAuditRow(row pgx.Row) (*models.AuditRecord, error) {
	var out models.AuditRecord
	if err := row.Scan(
		&out.ID,
		&out.CreatedAt,
		&out.ActorID,
		&out.ActorEmail,
		&out.ActorRole,
		&out.Action,
		&out.Severity,
		&out.TenantID,
		&out.TenantName,
		&out.TargetType,
		&out.TargetID,
		&out.TargetRepr,
		&out.PreviousState,
		&out.NewState,
		&out.IPAddress,
		&out.UserAgent,
		&out.RequestPath,
		&out.RequestMethod,
		&out.Description,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

func collectAuditRows(rows pgx.Rows) ([]*auditrecord.AuditRecord, error) {
	var results []*auditrecord.AuditRecord
	for rows.Next() {
		row, err := scanAuditRow(rows)
		if err != nil {
			return nil, err
		}
		record, err := toDomainAuditRecord(row)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func buildAuditFilters(params *auditrecord.FindParams) ([]string, []interface{}) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	argPos := 1
	if params == nil {
		return where, args
	}

	if params.Action != "" {
		where = append(where, fmt.Sprintf("action = $%d", argPos))
		args = append(args, string(params.Action))
		argPos++
	}
	if params.Severity != "" {
		where = append(where, fmt.Sprintf("severity = $%d", argPos))
		args = append(args, string(params.Severity))
		argPos++
	}
	if params.TenantID != nil {
		where = append(where, fmt.Sprintf("tenant_id = $%d", argPos))
		args = append(args, params.TenantID.String())
		argPos++
	}
	if params.ActorID != nil {
		where = append(where, fmt.Sprintf("actor_id = $%d", argPos))
		args = append(args, *params.ActorID)
		argPos++
	}
	if email := strings.TrimSpace(params.ActorEmail); email != "" {
		where = append(where, fmt.Sprintf("actor_email ILIKE $%d", argPos))
		args = append(args, "%"+email+"%")
		argPos++
	}
	if targetType := strings.TrimSpace(params.TargetType); targetType != "" {
		where = append(where, fmt.Sprintf("target_type = $%d", argPos))
		args = append(args, targetType)
		argPos++
	}
	if targetID := strings.TrimSpace(params.TargetID); targetID != "" {
		where = append(where, fmt.Sprintf("target_id = $%d", argPos))
		args = append(args, targetID)
		argPos++
	}
	if params.From != nil && !params.From.IsZero() {
		where = append(where, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *params.From)
		argPos++
	}
	if params.To != nil && !params.To.IsZero() {
		where = append(where, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *params.To)
	}
	return where, args
}
