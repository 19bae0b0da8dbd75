package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/core/domain/directory"
)

type stubDirectory struct {
	admins    map[uuid.UUID][]directory.Recipient
	owners    []directory.Recipient
	adminsErr error
}

func (d *stubDirectory) AdminsOf(_ context.Context, universityID uuid.UUID) ([]directory.Recipient, error) {
	if d.adminsErr != nil {
		return nil, d.adminsErr
	}
	return d.admins[universityID], nil
}

func (d *stubDirectory) GlobalOwners(_ context.Context) ([]directory.Recipient, error) {
	return d.owners, nil
}

type stubMailer struct {
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	To      []directory.Recipient
	Subject string
	Text    string
}

func (m *stubMailer) Send(_ context.Context, to []directory.Recipient, subject, _, textBody string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Text: textBody})
	return nil
}

func criticalRecord(tenantID uuid.UUID) *auditrecord.AuditRecord {
	actorID := uint(7)
	opts := []auditrecord.Option{
		auditrecord.WithActor(&actorID, "dean@unikin.cd", "admin"),
		auditrecord.WithTarget("University", tenantID.String(), "UNIKIN"),
		auditrecord.WithPreviousState(map[string]any{"status": "active", "theses": 120}),
		auditrecord.WithNewState(map[string]any{"status": "purged", "theses": 0}),
		auditrecord.WithRequestContext("41.243.7.10", "go-test", "/admin/universities/bulk-delete", "POST"),
	}
	if tenantID != uuid.Nil {
		opts = append(opts, auditrecord.WithTenant(tenantID, "UNIKIN"))
	}
	return auditrecord.New(auditrecord.UnivBulkDelete, auditrecord.SeverityCritical, opts...)
}

func TestEscalationNotifier_MailsTenantAdmins(t *testing.T) {
	tenantID := uuid.New()
	dir := &stubDirectory{
		admins: map[uuid.UUID][]directory.Recipient{
			tenantID: {{Email: "admin@unikin.cd", DisplayName: "Rector"}},
		},
		owners: []directory.Recipient{{Email: "root@univault.cd"}},
	}
	mailer := &stubMailer{}
	notifier := NewEscalationNotifier(dir, mailer, time.Second)

	notifier.Notify(context.Background(), criticalRecord(tenantID))

	require.Len(t, mailer.sent, 1)
	require.Equal(t, []directory.Recipient{{Email: "admin@unikin.cd", DisplayName: "Rector"}}, mailer.sent[0].To)
	require.Contains(t, mailer.sent[0].Subject, "UNIV_BULK_DELETE")
	require.Contains(t, mailer.sent[0].Text, "dean@unikin.cd")
	require.Contains(t, mailer.sent[0].Text, "Changed fields:")
	require.Contains(t, mailer.sent[0].Text, "status: purged")
}

func TestEscalationNotifier_FallsBackToOwners(t *testing.T) {
	tenantID := uuid.New()
	dir := &stubDirectory{
		owners: []directory.Recipient{{Email: "root@univault.cd", DisplayName: "Platform"}},
	}
	mailer := &stubMailer{}
	notifier := NewEscalationNotifier(dir, mailer, time.Second)

	// Tenant has no remaining admins.
	notifier.Notify(context.Background(), criticalRecord(tenantID))
	require.Len(t, mailer.sent, 1)
	require.Equal(t, "root@univault.cd", mailer.sent[0].To[0].Email)

	// Record without a tenant goes straight to owners.
	notifier.Notify(context.Background(), criticalRecord(uuid.Nil))
	require.Len(t, mailer.sent, 2)
}

func TestEscalationNotifier_NoRecipientsAborts(t *testing.T) {
	mailer := &stubMailer{}
	notifier := NewEscalationNotifier(&stubDirectory{}, mailer, time.Second)

	notifier.Notify(context.Background(), criticalRecord(uuid.New()))
	require.Empty(t, mailer.sent)
}

func TestEscalationNotifier_IgnoresSubCritical(t *testing.T) {
	mailer := &stubMailer{}
	dir := &stubDirectory{owners: []directory.Recipient{{Email: "root@univault.cd"}}}
	notifier := NewEscalationNotifier(dir, mailer, time.Second)

	record := auditrecord.New(auditrecord.ThesisDelete, auditrecord.SeverityHigh)
	notifier.Notify(context.Background(), record)
	require.Empty(t, mailer.sent)
}

func TestEscalationNotifier_SwallowsDeliveryFailure(t *testing.T) {
	dir := &stubDirectory{owners: []directory.Recipient{{Email: "root@univault.cd"}}}
	mailer := &stubMailer{sendErr: errors.New("relay down")}
	notifier := NewEscalationNotifier(dir, mailer, time.Second)

	// Must not panic or propagate.
	notifier.Notify(context.Background(), criticalRecord(uuid.Nil))
	require.Empty(t, mailer.sent)
}

func TestEscalationNotifier_NilMailerDisablesDispatch(t *testing.T) {
	dir := &stubDirectory{adminsErr: errors.New("unreachable")}
	notifier := NewEscalationNotifier(dir, nil, time.Second)

	notifier.Notify(context.Background(), criticalRecord(uuid.New()))
}
