package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/pkg/snapshot"
)

type publication struct {
	ID       uint
	Title    string
	Status   string
	APIToken string
}

func (p *publication) AuditLabel() string { return p.Title }

func (p *publication) Snapshot() map[string]any {
	return map[string]any{
		"id":        p.ID,
		"title":     p.Title,
		"status":    p.Status,
		"api_token": p.APIToken,
	}
}

func publicationTracker(repo *memRepo) *Tracker {
	return NewTracker(NewAuditService(repo, newBus()), TrackerConfig{
		CreateAction: auditrecord.ThesisCreate,
		UpdateAction: auditrecord.ThesisUpdate,
		DeleteAction: auditrecord.ThesisDelete,
	})
}

func TestTracker_Create_SnapshotsNewState(t *testing.T) {
	repo := &memRepo{}
	tracker := publicationTracker(repo)

	tracker.TrackCreate(context.Background(), &publication{
		ID: 42, Title: "Ngoy 2024", Status: "draft", APIToken: "tok-123",
	})

	require.Len(t, repo.records, 1)
	record := repo.records[0]
	require.Equal(t, auditrecord.ThesisCreate, record.Action())
	require.Equal(t, auditrecord.SeverityLow, record.Severity())
	require.Equal(t, "publication", record.TargetType())
	require.Equal(t, "42", record.TargetID())
	require.Equal(t, "Ngoy 2024", record.TargetRepr())
	require.Nil(t, record.PreviousState())
	require.Equal(t, "draft", record.NewState()["status"])
	require.Equal(t, snapshot.RedactedMarker, record.NewState()["api_token"])
}

func TestTracker_Update_CapturesBothStates(t *testing.T) {
	repo := &memRepo{}
	tracker := publicationTracker(repo)

	before := &publication{ID: 42, Title: "Ngoy 2024", Status: "draft"}
	after := &publication{ID: 42, Title: "Ngoy 2024", Status: "published"}
	tracker.TrackUpdate(context.Background(), before, after)

	require.Len(t, repo.records, 1)
	record := repo.records[0]
	require.Equal(t, auditrecord.ThesisUpdate, record.Action())
	require.Equal(t, "draft", record.PreviousState()["status"])
	require.Equal(t, "published", record.NewState()["status"])
}

func TestTracker_Delete_UsesMediumSeverityDefault(t *testing.T) {
	repo := &memRepo{}
	tracker := publicationTracker(repo)

	tracker.TrackDelete(context.Background(), &publication{ID: 42, Title: "Ngoy 2024", Status: "draft"})

	require.Len(t, repo.records, 1)
	record := repo.records[0]
	require.Equal(t, auditrecord.SeverityMedium, record.Severity())
	require.Equal(t, "draft", record.PreviousState()["status"])
	require.Nil(t, record.NewState())
}

func TestTracker_UnconfiguredVerbIsNoop(t *testing.T) {
	repo := &memRepo{}
	tracker := NewTracker(NewAuditService(repo, newBus()), TrackerConfig{
		DeleteAction: auditrecord.ThesisDelete,
	})

	tracker.TrackCreate(context.Background(), &publication{ID: 1})
	tracker.TrackUpdate(context.Background(), &publication{ID: 1}, &publication{ID: 1})
	require.Empty(t, repo.records)

	tracker.TrackDelete(context.Background(), &publication{ID: 1})
	require.Len(t, repo.records, 1)
}

func TestTracker_NilEntityStillRecordsWithoutTarget(t *testing.T) {
	repo := &memRepo{}
	tracker := publicationTracker(repo)

	tracker.TrackDelete(context.Background(), nil)

	var gone *publication
	tracker.TrackDelete(context.Background(), gone)

	require.Len(t, repo.records, 2)
	for _, record := range repo.records {
		require.Equal(t, auditrecord.ThesisDelete, record.Action())
		require.Empty(t, record.TargetID())
		require.Nil(t, record.PreviousState())
		require.Nil(t, record.NewState())
	}
}

func TestTracker_DeniedAttemptIsHighSeverity(t *testing.T) {
	repo := &memRepo{}
	tracker := publicationTracker(repo)

	tracker.TrackDenied(context.Background(), &publication{ID: 42, Title: "Ngoy 2024"}, "moderation requires an elevated role")

	require.Len(t, repo.records, 1)
	record := repo.records[0]
	require.Equal(t, auditrecord.AccessDenied, record.Action())
	require.Equal(t, auditrecord.SeverityHigh, record.Severity())
	require.Equal(t, "42", record.TargetID())
	require.Equal(t, "moderation requires an elevated role", record.Description())
}

func TestTracker_TenantResolverWins(t *testing.T) {
	repo := &memRepo{}
	tenantID := uuid.New()
	tracker := NewTracker(NewAuditService(repo, newBus()), TrackerConfig{
		TargetType:   "Thesis",
		CreateAction: auditrecord.ThesisCreate,
		Tenant: func(ctx context.Context, entity any) (uuid.UUID, string) {
			return tenantID, "UNIKIN"
		},
	})

	tracker.TrackCreate(context.Background(), &publication{ID: 42, Title: "Ngoy 2024"})

	require.Len(t, repo.records, 1)
	require.Equal(t, "Thesis", repo.records[0].TargetType())
	require.Equal(t, tenantID, repo.records[0].TenantID())
	require.Equal(t, "UNIKIN", repo.records[0].TenantName())
}
