package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/eventbus"
)

// EscalationHandler bridges the event bus to the notifier. Dispatch happens
// off the publishing goroutine with a fresh context: the request that caused
// the record may already be finished by the time mail goes out.
type EscalationHandler struct {
	notifier *services.EscalationNotifier
	pool     *pgxpool.Pool
	log      *logrus.Logger
}

func RegisterEscalationHandler(
	bus eventbus.EventBus,
	notifier *services.EscalationNotifier,
	pool *pgxpool.Pool,
	log *logrus.Logger,
) *EscalationHandler {
	handler := &EscalationHandler{
		notifier: notifier,
		pool:     pool,
		log:      log,
	}
	bus.Subscribe(handler.onRecordCreated)
	return handler
}

func (h *EscalationHandler) onRecordCreated(event auditrecord.CreatedEvent) {
	if event.Record == nil || !event.Record.Severity().AtLeast(auditrecord.SeverityCritical) {
		return
	}
	go h.dispatch(event.Record)
}

func (h *EscalationHandler) dispatch(record *auditrecord.AuditRecord) {
	ctx := composables.WithPool(context.Background(), h.pool)
	ctx = composables.WithLogger(ctx, logrus.NewEntry(h.log))
	h.notifier.Notify(ctx, record)
}
