package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/univault/univault/modules/thesis/domain/entities/thesis"
	"github.com/univault/univault/modules/thesis/infrastructure/persistence/models"
	"github.com/univault/univault/pkg/composables"
)

const thesisColumns = `id, university_id, title, author, year, status, created_at, updated_at`

type ThesisRepository struct{}

func NewThesisRepository() thesis.Repository {
	return &ThesisRepository{}
}

func (r *ThesisRepository) GetByID(ctx context.Context, id uint) (*thesis.Thesis, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row, err := scanThesisRow(tx.QueryRow(ctx, `SELECT `+thesisColumns+` FROM theses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, thesis.ErrNotFound
		}
		return nil, err
	}
	return toDomainThesis(row)
}

func (r *ThesisRepository) ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]*thesis.Thesis, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(
		ctx,
		`SELECT `+thesisColumns+` FROM theses WHERE university_id = $1 ORDER BY year DESC, id DESC`,
		universityID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*thesis.Thesis
	for rows.Next() {
		row, err := scanThesisRow(rows)
		if err != nil {
			return nil, err
		}
		entity, err := toDomainThesis(row)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, rows.Err()
}

func (r *ThesisRepository) Create(ctx context.Context, entity *thesis.Thesis) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBThesis(entity)
	var id uint
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO theses (university_id, title, author, year, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		dbRow.UniversityID,
		dbRow.Title,
		dbRow.Author,
		dbRow.Year,
		dbRow.Status,
		dbRow.CreatedAt,
		dbRow.UpdatedAt,
	).Scan(&id); err != nil {
		return err
	}
	thesis.WithID(id)(entity)
	return nil
}

func (r *ThesisRepository) Update(ctx context.Context, entity *thesis.Thesis) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBThesis(entity)
	tag, err := tx.Exec(
		ctx,
		`UPDATE theses SET title = $1, author = $2, year = $3, status = $4, updated_at = $5 WHERE id = $6`,
		dbRow.Title,
		dbRow.Author,
		dbRow.Year,
		dbRow.Status,
		time.Now(),
		dbRow.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return thesis.ErrNotFound
	}
	return nil
}

func (r *ThesisRepository) Delete(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM theses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return thesis.ErrNotFound
	}
	return nil
}

func scanThesisRow(row pgx.Row) (*models.Thesis, error) {
	var out models.Thesis
	if err := row.Scan(
		&out.ID,
		&out.UniversityID,
		&out.Title,
		&out.Author,
		&out.Year,
		&out.Status,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

func toDomainThesis(row *models.Thesis) (*thesis.Thesis, error) {
	universityID, err := uuid.Parse(row.UniversityID)
	if err != nil {
		return nil, err
	}
	return thesis.New(universityID, row.Title,
		thesis.WithID(row.ID),
		thesis.WithAuthor(row.Author, row.Year),
		thesis.WithStatus(thesis.Status(row.Status)),
		thesis.WithTimestamps(row.CreatedAt, row.UpdatedAt),
	), nil
}

func toDBThesis(entity *thesis.Thesis) *models.Thesis {
	return &models.Thesis{
		ID:           entity.ID(),
		UniversityID: entity.UniversityID().String(),
		Title:        entity.Title(),
		Author:       entity.Author(),
		Year:         entity.Year(),
		Status:       string(entity.Status()),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}
}
