package audit

import (
	"github.com/univault/univault/modules/audit/handlers"
	"github.com/univault/univault/modules/audit/infrastructure/persistence"
	"github.com/univault/univault/modules/audit/presentation/controllers"
	"github.com/univault/univault/modules/audit/services"
	corepersistence "github.com/univault/univault/modules/core/infrastructure/persistence"
	"github.com/univault/univault/pkg/application"
	"github.com/univault/univault/pkg/configuration"
	"github.com/univault/univault/pkg/mailer"
)

type Module struct{}

func NewModule() *Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "audit"
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	repo := persistence.NewAuditRecordRepository()
	auditService := services.NewAuditService(repo, app.EventPublisher())
	retentionService := services.NewRetentionService(repo)
	app.RegisterServices(auditService, retentionService)

	var alertMailer services.Mailer
	if smtp := mailer.NewSMTPMailer(conf.Mail); smtp != nil {
		alertMailer = smtp
	}
	notifier := services.NewEscalationNotifier(
		corepersistence.NewMembershipRepository(),
		alertMailer,
		conf.Audit.DispatchTimeout,
	)
	handlers.RegisterEscalationHandler(app.EventPublisher(), notifier, app.DB(), app.Logger())

	app.RegisterMiddleware(handlers.NewSentinel(auditService, conf.Audit).Middleware())
	app.RegisterControllers(controllers.NewAuditController(app))
	return nil
}
