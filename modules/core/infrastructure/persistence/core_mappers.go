package persistence

import (
	"github.com/google/uuid"

	"github.com/univault/univault/modules/core/domain/aggregates/user"
	"github.com/univault/univault/modules/core/domain/entities/invitation"
	"github.com/univault/univault/modules/core/domain/entities/university"
	"github.com/univault/univault/modules/core/infrastructure/persistence/models"
)

func toDomainUser(row *models.User) *user.User {
	return user.New(
		row.Email,
		user.WithID(row.ID),
		user.WithName(row.FirstName, row.LastName),
		user.WithRole(user.Role(row.Role)),
		user.WithPasswordHash(row.PasswordHash),
		user.WithActive(row.Active),
		user.WithCreatedAt(row.CreatedAt),
	)
}

func toDBUser(u *user.User) *models.User {
	return &models.User{
		ID:           u.ID(),
		Email:        u.Email(),
		FirstName:    u.FirstName(),
		LastName:     u.LastName(),
		Role:         u.Role(),
		PasswordHash: u.PasswordHash(),
		Active:       u.Active(),
		CreatedAt:    u.CreatedAt(),
	}
}

func toDomainUniversity(row *models.University) (*university.University, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	return university.New(
		row.Name,
		university.WithID(id),
		university.WithAcronym(row.Acronym),
		university.WithSlug(row.Slug),
		university.WithActive(row.Active),
		university.WithCreatedAt(row.CreatedAt),
	), nil
}

func toDBUniversity(u *university.University) *models.University {
	return &models.University{
		ID:        u.ID().String(),
		Name:      u.Name(),
		Acronym:   u.Acronym(),
		Slug:      u.Slug(),
		Active:    u.Active(),
		CreatedAt: u.CreatedAt(),
	}
}

func toDomainInvitation(row *models.InvitationCode) (*invitation.Code, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}
	universityID, err := uuid.Parse(row.UniversityID)
	if err != nil {
		return nil, err
	}
	return invitation.New(
		universityID,
		row.UniversityName,
		invitation.WithID(id),
		invitation.WithRole(user.Role(row.Role)),
		invitation.WithSecretHash(row.SecretHash),
		invitation.WithIssuer(row.CreatedByID, row.CreatedByEmail),
		invitation.WithConsumer(row.UsedByID, row.UsedByEmail),
		invitation.WithCreatedAt(row.CreatedAt),
		invitation.WithExpiresAt(row.ExpiresAt),
	), nil
}

func toDBInvitation(c *invitation.Code) *models.InvitationCode {
	return &models.InvitationCode{
		ID:             c.ID().String(),
		UniversityID:   c.UniversityID().String(),
		UniversityName: c.UniversityName(),
		Role:           string(c.Role()),
		SecretHash:     c.SecretHash(),
		CreatedByID:    c.CreatedByID(),
		CreatedByEmail: c.CreatedByEmail(),
		UsedByID:       c.UsedByID(),
		UsedByEmail:    c.UsedByEmail(),
		CreatedAt:      c.CreatedAt(),
		ExpiresAt:      c.ExpiresAt(),
	}
}
