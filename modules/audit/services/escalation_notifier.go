package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/core/domain/directory"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/metrics"
)

// Mailer sends a rendered alert. pkg/mailer provides the SMTP implementation;
// a nil Mailer disables escalation entirely.
type Mailer interface {
	Send(ctx context.Context, to []directory.Recipient, subject, htmlBody, textBody string) error
}

// EscalationNotifier emails administrators when a critical-severity record is
// written. Resolution walks outward: admins of the record's university first,
// then platform owners when the record has no tenant or the tenant has no
// admins left. Delivery is best-effort and never blocks longer than the
// configured timeout.
type EscalationNotifier struct {
	directory directory.Directory
	mailer    Mailer
	timeout   time.Duration
}

func NewEscalationNotifier(dir directory.Directory, mailer Mailer, timeout time.Duration) *EscalationNotifier {
	return &EscalationNotifier{
		directory: dir,
		mailer:    mailer,
		timeout:   timeout,
	}
}

func (n *EscalationNotifier) Notify(ctx context.Context, record *auditrecord.AuditRecord) {
	if record == nil || !record.Severity().AtLeast(auditrecord.SeverityCritical) {
		return
	}
	log := composables.UseLogger(ctx).WithField("action", record.Action())
	if n.mailer == nil {
		log.Debug("escalation skipped: mail not configured")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	recipients, err := n.resolve(ctx, record)
	if err != nil {
		metrics.EscalationFailuresTotal.Inc()
		log.WithError(err).Error("escalation recipient resolution failed")
		return
	}
	if len(recipients) == 0 {
		log.Warn("escalation aborted: no administrators to notify")
		return
	}

	metrics.EscalationsTotal.Inc()
	subject := fmt.Sprintf("[UniVault] Critical audit alert: %s", record.Action())
	if err := n.mailer.Send(ctx, recipients, subject, htmlBody(record), textBody(record)); err != nil {
		metrics.EscalationFailuresTotal.Inc()
		log.WithError(err).Error("escalation mail dispatch failed")
	}
}

func (n *EscalationNotifier) resolve(ctx context.Context, record *auditrecord.AuditRecord) ([]directory.Recipient, error) {
	if record.TenantID() != uuid.Nil {
		admins, err := n.directory.AdminsOf(ctx, record.TenantID())
		if err != nil {
			return nil, err
		}
		if len(admins) > 0 {
			return admins, nil
		}
	}
	return n.directory.GlobalOwners(ctx)
}

func textBody(record *auditrecord.AuditRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A critical action was recorded on UniVault.\n\n")
	fmt.Fprintf(&b, "Action:      %s\n", record.Action())
	fmt.Fprintf(&b, "When:        %s\n", record.CreatedAt().Format(time.RFC1123))
	fmt.Fprintf(&b, "Actor:       %s\n", actorLine(record))
	if record.TenantName() != "" {
		fmt.Fprintf(&b, "University:  %s\n", record.TenantName())
	}
	if record.TargetRepr() != "" {
		fmt.Fprintf(&b, "Target:      %s (%s)\n", record.TargetRepr(), record.TargetType())
	}
	if record.IPAddress() != "" {
		fmt.Fprintf(&b, "From:        %s %s %s\n", record.IPAddress(), record.RequestMethod(), record.RequestPath())
	}
	fmt.Fprintf(&b, "\n%s\n", record.Description())

	if changes := changedFields(record); len(changes) > 0 {
		fmt.Fprintf(&b, "\nChanged fields:\n")
		for _, change := range changes {
			fmt.Fprintf(&b, "  - %s\n", change)
		}
	}
	return b.String()
}

func htmlBody(record *auditrecord.AuditRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Critical audit alert</h2>")
	fmt.Fprintf(&b, "<p><strong>%s</strong> &mdash; %s</p>", record.Action(), record.CreatedAt().Format(time.RFC1123))
	fmt.Fprintf(&b, "<p>%s</p>", record.Description())
	fmt.Fprintf(&b, "<ul>")
	fmt.Fprintf(&b, "<li>Actor: %s</li>", actorLine(record))
	if record.TenantName() != "" {
		fmt.Fprintf(&b, "<li>University: %s</li>", record.TenantName())
	}
	if record.TargetRepr() != "" {
		fmt.Fprintf(&b, "<li>Target: %s (%s)</li>", record.TargetRepr(), record.TargetType())
	}
	if record.IPAddress() != "" {
		fmt.Fprintf(&b, "<li>From: %s %s %s</li>", record.IPAddress(), record.RequestMethod(), record.RequestPath())
	}
	fmt.Fprintf(&b, "</ul>")
	if changes := changedFields(record); len(changes) > 0 {
		fmt.Fprintf(&b, "<h3>Changed fields</h3><ul>")
		for _, change := range changes {
			fmt.Fprintf(&b, "<li>%s</li>", change)
		}
		fmt.Fprintf(&b, "</ul>")
	}
	return b.String()
}

func actorLine(record *auditrecord.AuditRecord) string {
	if record.ActorEmail() == "" {
		return "system"
	}
	if record.ActorRole() != "" {
		return fmt.Sprintf("%s (%s)", record.ActorEmail(), record.ActorRole())
	}
	return record.ActorEmail()
}

// changedFields diffs the two snapshots into a short per-field summary for
// the alert body. A failed diff is dropped rather than failing the alert.
func changedFields(record *auditrecord.AuditRecord) []string {
	previous, next := record.PreviousState(), record.NewState()
	if previous == nil || next == nil {
		return nil
	}
	patch, err := jsondiff.Compare(previous, next)
	if err != nil {
		return nil
	}

	changes := make([]string, 0, len(patch))
	for _, op := range patch {
		field := strings.TrimPrefix(op.Path, "/")
		switch op.Type {
		case jsondiff.OperationReplace, jsondiff.OperationAdd:
			changes = append(changes, fmt.Sprintf("%s: %v", field, op.Value))
		case jsondiff.OperationRemove:
			changes = append(changes, fmt.Sprintf("%s: removed", field))
		}
	}
	return changes
}
