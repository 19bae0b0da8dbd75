package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/univault/univault/modules/core/domain/entities/university"
	"github.com/univault/univault/modules/core/infrastructure/persistence/models"
	"github.com/univault/univault/pkg/composables"
)

var ErrUniversityNotFound = errors.New("university not found")

type UniversityRepository struct{}

func NewUniversityRepository() university.Repository {
	return &UniversityRepository{}
}

const universityColumns = `id, name, acronym, slug, active, created_at`

func (r *UniversityRepository) GetByID(ctx context.Context, id uuid.UUID) (*university.University, error) {
	return r.getOne(ctx, `SELECT `+universityColumns+` FROM universities WHERE id = $1`, id)
}

func (r *UniversityRepository) GetBySlug(ctx context.Context, slug string) (*university.University, error) {
	return r.getOne(ctx, `SELECT `+universityColumns+` FROM universities WHERE slug = $1`, slug)
}

func (r *UniversityRepository) getOne(ctx context.Context, query string, arg any) (*university.University, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var row models.University
	if err := tx.QueryRow(ctx, query, arg).Scan(
		&row.ID,
		&row.Name,
		&row.Acronym,
		&row.Slug,
		&row.Active,
		&row.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUniversityNotFound
		}
		return nil, err
	}
	return toDomainUniversity(&row)
}

func (r *UniversityRepository) Create(ctx context.Context, u *university.University) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBUniversity(u)
	_, err = tx.Exec(
		ctx,
		`INSERT INTO universities (id, name, acronym, slug, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		dbRow.ID,
		dbRow.Name,
		dbRow.Acronym,
		dbRow.Slug,
		dbRow.Active,
		dbRow.CreatedAt,
	)
	return err
}
