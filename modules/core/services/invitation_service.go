package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	auditservices "github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/modules/core/domain/aggregates/user"
	"github.com/univault/univault/modules/core/domain/entities/invitation"
	"github.com/univault/univault/modules/core/domain/entities/membership"
	"github.com/univault/univault/modules/core/domain/entities/university"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/serrors"
)

var ErrInvitationForbidden = serrors.NewError("FORBIDDEN", "only administrators can issue invitation codes", "Invitations.Errors.Forbidden")

const secretBytes = 32

// InvitationService issues and consumes single-use join codes. The code a
// caller receives is `<id>.<secret>`; the secret half exists only in that
// returned string and as a bcrypt hash in storage.
type InvitationService struct {
	repo         invitation.Repository
	universities university.Repository
	memberships  membership.Repository
	audit        *auditservices.AuditService
}

func NewInvitationService(
	repo invitation.Repository,
	universities university.Repository,
	memberships membership.Repository,
	audit *auditservices.AuditService,
) *InvitationService {
	return &InvitationService{
		repo:         repo,
		universities: universities,
		memberships:  memberships,
		audit:        audit,
	}
}

// Issue creates a code granting role at the given university and returns the
// one-time plaintext. Subsequent reads only ever see the hash.
func (s *InvitationService) Issue(ctx context.Context, universityID uuid.UUID, role user.Role) (string, *invitation.Code, error) {
	issuer, err := composables.UseUser(ctx)
	if err != nil || !issuer.IsElevated() {
		return "", nil, ErrInvitationForbidden
	}
	if !role.IsValid() {
		return "", nil, fmt.Errorf("unknown role %q", role)
	}

	univ, err := s.universities.GetByID(ctx, universityID)
	if err != nil {
		return "", nil, err
	}

	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(secret)
	hash, err := bcrypt.GenerateFromPassword([]byte(encoded), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	code := invitation.New(univ.ID(), univ.Name(),
		invitation.WithID(uuid.New()),
		invitation.WithRole(role),
		invitation.WithSecretHash(hash),
		invitation.WithIssuer(issuer.ID(), issuer.Email()),
		invitation.WithExpiresAt(time.Now().Add(invitation.DefaultTTL)),
	)

	if err := s.repo.Create(ctx, code); err != nil {
		return "", nil, err
	}

	s.audit.Record(ctx, auditservices.Entry{
		Action:     auditrecord.InvitationCreate,
		Severity:   auditrecord.SeverityMedium,
		TenantID:   univ.ID(),
		TenantName: univ.Name(),
		TargetType: "InvitationCode",
		TargetID:   code.ID().String(),
		TargetRepr: code.AuditLabel(),
		NewState: map[string]any{
			"role":       string(role),
			"expires_at": code.ExpiresAt().Format(time.RFC3339),
		},
	})

	return fmt.Sprintf("%s.%s", code.ID(), encoded), code, nil
}

// Consume redeems a plaintext code for the calling user. Exactly one caller
// can win a given code; losers get ErrAlreadyUsed or ErrExpired.
func (s *InvitationService) Consume(ctx context.Context, plaintext string) (*invitation.Code, error) {
	consumer, err := composables.UseUser(ctx)
	if err != nil {
		return nil, composables.ErrNoUser
	}

	id, secret, err := splitCode(plaintext)
	if err != nil {
		return nil, err
	}

	code, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(code.SecretHash(), []byte(secret)); err != nil {
		return nil, invitation.ErrBadSecret
	}

	now := time.Now()
	won, err := s.repo.Consume(ctx, id, consumer.ID(), consumer.Email(), now)
	if err != nil {
		return nil, err
	}
	if !won {
		if code.Expired(now) {
			return nil, invitation.ErrExpired
		}
		return nil, invitation.ErrAlreadyUsed
	}

	consumed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		// The win already happened; report it with the stale copy.
		consumed = code
	}

	// The grant is the point of the code: the winner becomes a member with
	// the invited role, which is what AdminsOf resolves escalation audiences
	// from. Assign is an upsert, so a retry after a failure here is safe.
	if err := s.memberships.Assign(ctx, &membership.Membership{
		UserID:       consumer.ID(),
		UniversityID: consumed.UniversityID(),
		Role:         consumed.Role(),
		CreatedAt:    now,
	}); err != nil {
		return nil, fmt.Errorf("invitation consumed but role grant failed: %w", err)
	}

	s.audit.Record(ctx, auditservices.Entry{
		Action:     auditrecord.InvitationConsume,
		Severity:   auditrecord.SeverityMedium,
		TenantID:   consumed.UniversityID(),
		TenantName: consumed.UniversityName(),
		TargetType: "InvitationCode",
		TargetID:   consumed.ID().String(),
		TargetRepr: consumed.AuditLabel(),
		NewState: map[string]any{
			"role":          string(consumed.Role()),
			"used_by_email": consumer.Email(),
		},
	})
	return consumed, nil
}

func splitCode(plaintext string) (uuid.UUID, string, error) {
	idPart, secret, found := strings.Cut(strings.TrimSpace(plaintext), ".")
	if !found || secret == "" {
		return uuid.Nil, "", invitation.ErrNotFound
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", invitation.ErrNotFound
	}
	return id, secret, nil
}
