package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/univault/univault/modules/core/domain/entities/invitation"
	"github.com/univault/univault/modules/core/infrastructure/persistence/models"
	"github.com/univault/univault/pkg/composables"
)

type InvitationRepository struct{}

func NewInvitationRepository() invitation.Repository {
	return &InvitationRepository{}
}

func (r *InvitationRepository) Create(ctx context.Context, code *invitation.Code) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBInvitation(code)
	_, err = tx.Exec(
		ctx,
		`INSERT INTO invitation_codes
		 (id, university_id, university_name, role, secret_hash, created_by_id, created_by_email, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		dbRow.ID,
		dbRow.UniversityID,
		dbRow.UniversityName,
		dbRow.Role,
		dbRow.SecretHash,
		dbRow.CreatedByID,
		dbRow.CreatedByEmail,
		dbRow.CreatedAt,
		dbRow.ExpiresAt,
	)
	return err
}

func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*invitation.Code, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var row models.InvitationCode
	if err := tx.QueryRow(
		ctx,
		`SELECT id, university_id, university_name, role, secret_hash,
		        created_by_id, created_by_email, used_by_id, COALESCE(used_by_email, ''),
		        created_at, expires_at
		 FROM invitation_codes WHERE id = $1`,
		id.String(),
	).Scan(
		&row.ID,
		&row.UniversityID,
		&row.UniversityName,
		&row.Role,
		&row.SecretHash,
		&row.CreatedByID,
		&row.CreatedByEmail,
		&row.UsedByID,
		&row.UsedByEmail,
		&row.CreatedAt,
		&row.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invitation.ErrNotFound
		}
		return nil, err
	}
	return toDomainInvitation(&row)
}

// Consume is the single-winner step: the conditional UPDATE only matches an
// unused, unexpired row, so concurrent consumers race safely at the database.
func (r *InvitationRepository) Consume(ctx context.Context, id uuid.UUID, usedByID uint, usedByEmail string, now time.Time) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}

	tag, err := tx.Exec(
		ctx,
		`UPDATE invitation_codes
		 SET used_by_id = $1, used_by_email = $2
		 WHERE id = $3 AND used_by_id IS NULL AND expires_at > $4`,
		usedByID,
		usedByEmail,
		id.String(),
		now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
