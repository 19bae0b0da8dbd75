package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/univault/univault/modules/core/domain/aggregates/user"
	"github.com/univault/univault/modules/core/domain/directory"
	"github.com/univault/univault/modules/core/domain/entities/membership"
	"github.com/univault/univault/pkg/composables"
)

var ErrMembershipNotFound = errors.New("membership not found")

// MembershipRepository stores per-university role assignments and doubles as
// the directory the escalation notifier resolves audiences through.
type MembershipRepository struct{}

func NewMembershipRepository() *MembershipRepository {
	return &MembershipRepository{}
}

var (
	_ membership.Repository = (*MembershipRepository)(nil)
	_ directory.Directory   = (*MembershipRepository)(nil)
)

func (r *MembershipRepository) Assign(ctx context.Context, m *membership.Membership) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return tx.QueryRow(
		ctx,
		`INSERT INTO university_memberships (user_id, university_id, role, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, university_id) DO UPDATE SET role = EXCLUDED.role
		 RETURNING id`,
		m.UserID,
		m.UniversityID.String(),
		string(m.Role),
		m.CreatedAt,
	).Scan(&m.ID)
}

func (r *MembershipRepository) Remove(ctx context.Context, userID uint, universityID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(
		ctx,
		`DELETE FROM university_memberships WHERE user_id = $1 AND university_id = $2`,
		userID,
		universityID.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

func (r *MembershipRepository) RoleOf(ctx context.Context, userID uint, universityID uuid.UUID) (user.Role, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return "", err
	}
	var role string
	if err := tx.QueryRow(
		ctx,
		`SELECT role FROM university_memberships WHERE user_id = $1 AND university_id = $2`,
		userID,
		universityID.String(),
	).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMembershipNotFound
		}
		return "", err
	}
	return user.Role(role), nil
}

// AdminsOf resolves every administrator of the university, deduplicated by
// email. The role set is closed: admin, superadmin and owner.
func (r *MembershipRepository) AdminsOf(ctx context.Context, universityID uuid.UUID) ([]directory.Recipient, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(
		ctx,
		`SELECT DISTINCT ON (u.email) u.email, u.first_name, u.last_name
		 FROM university_memberships m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.university_id = $1 AND m.role = ANY($2) AND u.active
		 ORDER BY u.email`,
		universityID.String(),
		roleStrings(user.AdminRoles),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecipients(rows)
}

// GlobalOwners is the fallback audience: system-wide owners independent of
// any tenant.
func (r *MembershipRepository) GlobalOwners(ctx context.Context) ([]directory.Recipient, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(
		ctx,
		`SELECT email, first_name, last_name FROM users
		 WHERE role = $1 AND active
		 ORDER BY email`,
		string(user.RoleOwner),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecipients(rows)
}

func scanRecipients(rows pgx.Rows) ([]directory.Recipient, error) {
	var recipients []directory.Recipient
	for rows.Next() {
		var email, firstName, lastName string
		if err := rows.Scan(&email, &firstName, &lastName); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(firstName + " " + lastName)
		if name == "" {
			name = email
		}
		recipients = append(recipients, directory.Recipient{
			Email:       email,
			DisplayName: name,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recipients, nil
}

func roleStrings(roles []user.Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}
