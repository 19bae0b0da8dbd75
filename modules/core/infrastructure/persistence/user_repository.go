package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/univault/univault/modules/core/domain/aggregates/user"
	"github.com/univault/univault/modules/core/infrastructure/persistence/models"
	"github.com/univault/univault/pkg/composables"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct{}

func NewUserRepository() user.Repository {
	return &UserRepository{}
}

const userColumns = `id, email, first_name, last_name, role, password_hash, active, created_at`

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var row models.User
	if err := tx.QueryRow(ctx, query, arg).Scan(
		&row.ID,
		&row.Email,
		&row.FirstName,
		&row.LastName,
		&row.Role,
		&row.PasswordHash,
		&row.Active,
		&row.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toDomainUser(&row), nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBUser(u)
	return tx.QueryRow(
		ctx,
		`INSERT INTO users (email, first_name, last_name, role, password_hash, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		dbRow.Email,
		dbRow.FirstName,
		dbRow.LastName,
		dbRow.Role,
		dbRow.PasswordHash,
		dbRow.Active,
		dbRow.CreatedAt,
	).Scan(new(uint))
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uint, role user.Role) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, string(role), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
