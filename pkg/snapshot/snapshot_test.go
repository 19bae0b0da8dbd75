package snapshot

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email        string
	PasswordHash string
	ResetToken   string
	AccessCode   string
}

type owner struct {
	ID   uint
	name string
}

func (o *owner) AuditLabel() string { return o.name }

type document struct {
	Title     string
	Pages     int
	Published bool
	CreatedAt time.Time
	Owner     *owner
	Tags      []string
}

func TestSerialize_RedactsSecretFields(t *testing.T) {
	fields := Serialize(&credentials{
		Email:        "a@b.edu",
		PasswordHash: "pbkdf2$abc",
		ResetToken:   "tok-123",
		AccessCode:   "999999",
	})

	require.Equal(t, "a@b.edu", fields["email"])
	require.Equal(t, RedactedMarker, fields["password_hash"])
	require.Equal(t, RedactedMarker, fields["reset_token"])
	require.Equal(t, RedactedMarker, fields["access_code"])
}

func TestSerialize_SummarizesReferencesInsteadOfRecursing(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fields := Serialize(&document{
		Title:     "Thèse de doctorat",
		Pages:     212,
		Published: true,
		CreatedAt: created,
		Owner:     &owner{ID: 42, name: "J. Mbala"},
		Tags:      []string{"ai", "nlp"},
	})

	require.Equal(t, "Thèse de doctorat", fields["title"])
	require.Equal(t, 212, fields["pages"])
	require.Equal(t, "2026-03-01T12:00:00Z", fields["created_at"])
	require.Equal(t, map[string]any{"id": "42", "label": "J. Mbala"}, fields["owner"])
	require.Equal(t, []any{"ai", "nlp"}, fields["tags"])
}

type snapshotOwn struct{}

func (snapshotOwn) Snapshot() map[string]any {
	return map[string]any{"status": "active", "secret_code": "s3cr3t"}
}

func TestSerialize_SnapshotterMapsAreStillRedacted(t *testing.T) {
	fields := Serialize(snapshotOwn{})
	require.Equal(t, "active", fields["status"])
	require.Equal(t, RedactedMarker, fields["secret_code"])
}

type exploding struct{}

func (exploding) String() string { panic("broken stringer") }

type withExploding struct {
	Safe string
	Bad  exploding
}

func TestSerialize_ErroredFieldDegradesToInlineError(t *testing.T) {
	fields := Serialize(withExploding{Safe: "ok"})
	require.Equal(t, "ok", fields["safe"])
	require.Contains(t, fields["bad"], "<error:")
}

func TestSerialize_NilAndScalars(t *testing.T) {
	require.Nil(t, Serialize(nil))
	var p *document
	require.Nil(t, Serialize(p))
	require.Equal(t, map[string]any{"value": 7}, Serialize(7))
}

type account struct{ status string }

func (a *account) Snapshot() map[string]any {
	return map[string]any{"status": a.status}
}

func TestSerialize_NilSnapshotterDoesNotCallSnapshot(t *testing.T) {
	var a *account
	require.Nil(t, Serialize(a))
}

func TestIdentity_NilEntities(t *testing.T) {
	id, label := Identity(nil)
	require.Empty(t, id)
	require.Empty(t, label)

	var o *owner
	id, label = Identity(o)
	require.Empty(t, id)
	require.Empty(t, label)
}

func TestIdentity_FromMethodsAndFields(t *testing.T) {
	id, label := Identity(&owner{ID: 9, name: "Univ X"})
	require.Equal(t, "9", id)
	require.Equal(t, "Univ X", label)

	type bare struct{ ID uuid.UUID }
	u := uuid.New()
	id, label = Identity(bare{ID: u})
	require.Equal(t, u.String(), id)
	require.Contains(t, label, "bare #")
}

func TestTypeName(t *testing.T) {
	require.Equal(t, "document", TypeName(&document{}))
	require.Equal(t, "owner", TypeName(owner{}))
}
