package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	auditservices "github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/modules/thesis/domain/entities/thesis"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/serrors"
)

var ErrModerationForbidden = serrors.NewError("FORBIDDEN", "moderation requires an elevated role", "Theses.Errors.ModerationForbidden")

// ThesisService is the instrumented write path: every committed mutation
// leaves an audit record with the entity state around it.
type ThesisService struct {
	repo    thesis.Repository
	tracker *auditservices.Tracker
}

func NewThesisService(repo thesis.Repository, tracker *auditservices.Tracker) *ThesisService {
	return &ThesisService{
		repo:    repo,
		tracker: tracker,
	}
}

func (s *ThesisService) GetByID(ctx context.Context, id uint) (*thesis.Thesis, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ThesisService) ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]*thesis.Thesis, error) {
	return s.repo.ListByUniversity(ctx, universityID)
}

func (s *ThesisService) Create(ctx context.Context, entity *thesis.Thesis) error {
	if err := s.repo.Create(ctx, entity); err != nil {
		return err
	}
	s.tracker.TrackCreate(ctx, entity)
	return nil
}

func (s *ThesisService) Update(ctx context.Context, entity *thesis.Thesis) error {
	before, err := s.repo.GetByID(ctx, entity.ID())
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, entity); err != nil {
		return err
	}
	s.tracker.TrackUpdate(ctx, before, entity)
	return nil
}

// Delete removes the thesis and records it with the full prior state, so the
// trail can answer what was lost.
func (s *ThesisService) Delete(ctx context.Context, id uint) error {
	entity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.tracker.TrackDelete(ctx, entity)
	return nil
}

// Moderate flips a thesis's status. Non-elevated callers are refused, and
// the refused attempt itself lands in the trail.
func (s *ThesisService) Moderate(ctx context.Context, id uint, status thesis.Status) (*thesis.Thesis, error) {
	entity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	principal, err := composables.UseUser(ctx)
	if err != nil || !principal.IsElevated() {
		s.tracker.TrackDenied(ctx, entity, "moderation requires an elevated role")
		return nil, ErrModerationForbidden
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown thesis status %q", status)
	}

	updated := entity.WithChanges(thesis.WithStatus(status))
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}
	s.tracker.TrackUpdate(ctx, entity, updated)
	return updated, nil
}
