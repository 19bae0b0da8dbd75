package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	auditservices "github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/modules/core/domain/aggregates/user"
	"github.com/univault/univault/modules/core/domain/entities/invitation"
	"github.com/univault/univault/modules/core/domain/entities/membership"
	"github.com/univault/univault/modules/core/domain/entities/university"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/eventbus"
)

// memInvitationRepo mirrors the conditional-update consume semantics of the
// SQL repository under a mutex, so concurrency tests exercise the same
// single-winner contract.
type memInvitationRepo struct {
	mu    sync.Mutex
	codes map[uuid.UUID]*invitation.Code
}

func newMemInvitationRepo() *memInvitationRepo {
	return &memInvitationRepo{codes: make(map[uuid.UUID]*invitation.Code)}
}

func (r *memInvitationRepo) Create(_ context.Context, code *invitation.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.ID()] = code
	return nil
}

func (r *memInvitationRepo) GetByID(_ context.Context, id uuid.UUID) (*invitation.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[id]
	if !ok {
		return nil, invitation.ErrNotFound
	}
	return code, nil
}

func (r *memInvitationRepo) Consume(_ context.Context, id uuid.UUID, usedByID uint, usedByEmail string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[id]
	if !ok || code.Inert(now) {
		return false, nil
	}
	r.codes[id] = invitation.New(code.UniversityID(), code.UniversityName(),
		invitation.WithID(code.ID()),
		invitation.WithRole(code.Role()),
		invitation.WithSecretHash(code.SecretHash()),
		invitation.WithIssuer(code.CreatedByID(), code.CreatedByEmail()),
		invitation.WithConsumer(&usedByID, usedByEmail),
		invitation.WithCreatedAt(code.CreatedAt()),
		invitation.WithExpiresAt(code.ExpiresAt()),
	)
	return true, nil
}

type grantKey struct {
	userID       uint
	universityID uuid.UUID
}

type memMembershipRepo struct {
	mu     sync.Mutex
	grants map[grantKey]user.Role
}

func (r *memMembershipRepo) Assign(_ context.Context, m *membership.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grants == nil {
		r.grants = make(map[grantKey]user.Role)
	}
	r.grants[grantKey{m.UserID, m.UniversityID}] = m.Role
	return nil
}

func (r *memMembershipRepo) Remove(_ context.Context, userID uint, universityID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants, grantKey{userID, universityID})
	return nil
}

func (r *memMembershipRepo) RoleOf(_ context.Context, userID uint, universityID uuid.UUID) (user.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.grants[grantKey{userID, universityID}]
	if !ok {
		return "", errNoGrant
	}
	return role, nil
}

var errNoGrant = errors.New("no membership granted")

type memUniversityRepo struct {
	unis map[uuid.UUID]*university.University
}

func (r *memUniversityRepo) GetByID(_ context.Context, id uuid.UUID) (*university.University, error) {
	return r.unis[id], nil
}

func (r *memUniversityRepo) GetBySlug(_ context.Context, slug string) (*university.University, error) {
	for _, u := range r.unis {
		if u.Slug() == slug {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUniversityRepo) Create(_ context.Context, u *university.University) error {
	r.unis[u.ID()] = u
	return nil
}

type recordingRepo struct {
	mu      sync.Mutex
	records []*auditrecord.AuditRecord
}

func (r *recordingRepo) Create(_ context.Context, record *auditrecord.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *recordingRepo) GetByID(context.Context, uint) (*auditrecord.AuditRecord, error) {
	return nil, nil
}

func (r *recordingRepo) List(context.Context, *auditrecord.FindParams) ([]*auditrecord.AuditRecord, error) {
	return nil, nil
}

func (r *recordingRepo) Count(context.Context, *auditrecord.FindParams) (int64, error) {
	return 0, nil
}

func (r *recordingRepo) ListOlderThan(context.Context, time.Time) ([]*auditrecord.AuditRecord, error) {
	return nil, nil
}

func (r *recordingRepo) CountOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }
func (r *recordingRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}
func (r *recordingRepo) DeleteByID(context.Context, uint) error { return nil }

func invitationFixture(t *testing.T) (*InvitationService, *memInvitationRepo, *recordingRepo, *memMembershipRepo, uuid.UUID) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	auditRepo := &recordingRepo{}
	auditSvc := auditservices.NewAuditService(auditRepo, eventbus.NewEventPublisher(log))

	univID := uuid.New()
	unis := &memUniversityRepo{unis: map[uuid.UUID]*university.University{}}
	unis.Create(context.Background(), university.New("Université de Kinshasa",
		university.WithID(univID),
		university.WithAcronym("UNIKIN"),
		university.WithSlug("unikin"),
	))

	repo := newMemInvitationRepo()
	members := &memMembershipRepo{}
	return NewInvitationService(repo, unis, members, auditSvc), repo, auditRepo, members, univID
}

func adminContext(role user.Role, id uint, email string) context.Context {
	p := user.New(email, user.WithID(id), user.WithRole(role))
	return composables.WithUser(context.Background(), p)
}

func TestInvitationService_IssueReturnsPlaintextOnce(t *testing.T) {
	svc, repo, auditRepo, _, univID := invitationFixture(t)
	ctx := adminContext(user.RoleAdmin, 3, "rector@unikin.cd")

	plaintext, code, err := svc.Issue(ctx, univID, user.RoleProfessor)
	require.NoError(t, err)

	id, secret, found := strings.Cut(plaintext, ".")
	require.True(t, found)
	require.Equal(t, code.ID().String(), id)
	require.NotEmpty(t, secret)

	// Storage holds the bcrypt hash, never the secret.
	stored, err := repo.GetByID(ctx, code.ID())
	require.NoError(t, err)
	require.NotContains(t, string(stored.SecretHash()), secret)
	require.NoError(t, bcrypt.CompareHashAndPassword(stored.SecretHash(), []byte(secret)))

	require.Len(t, auditRepo.records, 1)
	require.Equal(t, auditrecord.InvitationCreate, auditRepo.records[0].Action())
	require.Equal(t, "Université de Kinshasa", auditRepo.records[0].TenantName())
}

func TestInvitationService_IssueRequiresElevation(t *testing.T) {
	svc, _, _, _, univID := invitationFixture(t)

	_, _, err := svc.Issue(adminContext(user.RoleStandard, 9, "etudiant@unikin.cd"), univID, user.RoleProfessor)
	require.ErrorIs(t, err, ErrInvitationForbidden)

	_, _, err = svc.Issue(context.Background(), univID, user.RoleProfessor)
	require.ErrorIs(t, err, ErrInvitationForbidden)
}

func TestInvitationService_ConsumeHappyPath(t *testing.T) {
	svc, _, auditRepo, _, univID := invitationFixture(t)

	plaintext, _, err := svc.Issue(adminContext(user.RoleAdmin, 3, "rector@unikin.cd"), univID, user.RoleProfessor)
	require.NoError(t, err)

	consumed, err := svc.Consume(adminContext(user.RoleStandard, 12, "prof@unikin.cd"), plaintext)
	require.NoError(t, err)
	require.True(t, consumed.Used())
	require.Equal(t, "prof@unikin.cd", consumed.UsedByEmail())

	require.Len(t, auditRepo.records, 2)
	require.Equal(t, auditrecord.InvitationConsume, auditRepo.records[1].Action())
}

func TestInvitationService_ConsumeGrantsInvitedRole(t *testing.T) {
	svc, _, _, members, univID := invitationFixture(t)

	plaintext, _, err := svc.Issue(adminContext(user.RoleAdmin, 3, "rector@unikin.cd"), univID, user.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Consume(adminContext(user.RoleStandard, 12, "doyen@unikin.cd"), plaintext)
	require.NoError(t, err)

	// The winner holds the invited role inside the university, which is the
	// membership AdminsOf resolves escalation audiences from.
	role, err := members.RoleOf(context.Background(), 12, univID)
	require.NoError(t, err)
	require.Equal(t, user.RoleAdmin, role)

	_, err = members.RoleOf(context.Background(), 99, univID)
	require.ErrorIs(t, err, errNoGrant)
}

func TestInvitationService_ConsumeRejectsBadSecret(t *testing.T) {
	svc, _, _, _, univID := invitationFixture(t)

	_, code, err := svc.Issue(adminContext(user.RoleAdmin, 3, "rector@unikin.cd"), univID, user.RoleProfessor)
	require.NoError(t, err)

	_, err = svc.Consume(adminContext(user.RoleStandard, 12, "prof@unikin.cd"), code.ID().String()+".forged-secret")
	require.ErrorIs(t, err, invitation.ErrBadSecret)

	_, err = svc.Consume(adminContext(user.RoleStandard, 12, "prof@unikin.cd"), "not-a-code")
	require.ErrorIs(t, err, invitation.ErrNotFound)
}

func TestInvitationService_ConsumeRejectsReuse(t *testing.T) {
	svc, _, _, _, univID := invitationFixture(t)

	plaintext, _, err := svc.Issue(adminContext(user.RoleAdmin, 3, "rector@unikin.cd"), univID, user.RoleProfessor)
	require.NoError(t, err)

	_, err = svc.Consume(adminContext(user.RoleStandard, 12, "prof@unikin.cd"), plaintext)
	require.NoError(t, err)

	_, err = svc.Consume(adminContext(user.RoleStandard, 13, "autre@unikin.cd"), plaintext)
	require.ErrorIs(t, err, invitation.ErrAlreadyUsed)
}

func TestInvitationService_ConcurrentConsumeHasOneWinner(t *testing.T) {
	svc, _, _, _, univID := invitationFixture(t)

	plaintext, _, err := svc.Issue(adminContext(user.RoleAdmin, 3, "rector@unikin.cd"), univID, user.RoleProfessor)
	require.NoError(t, err)

	const contenders = 8
	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx := adminContext(user.RoleStandard, uint(100+n), "contender@unikin.cd")
			_, err := svc.Consume(ctx, plaintext)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var winners, losers int
	for err := range results {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, invitation.ErrAlreadyUsed)
			losers++
		}
	}
	require.Equal(t, 1, winners)
	require.Equal(t, contenders-1, losers)
}
