package thesis

import (
	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	auditservices "github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/modules/thesis/infrastructure/persistence"
	"github.com/univault/univault/modules/thesis/services"
	"github.com/univault/univault/pkg/application"
)

type Module struct{}

func NewModule() *Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "thesis"
}

func (m *Module) Register(app application.Application) error {
	auditService := app.Service(auditservices.AuditService{}).(*auditservices.AuditService)
	tracker := auditservices.NewTracker(auditService, auditservices.TrackerConfig{
		TargetType:     "Thesis",
		CreateAction:   auditrecord.ThesisCreate,
		UpdateAction:   auditrecord.ThesisUpdate,
		DeleteAction:   auditrecord.ThesisDelete,
		DeleteSeverity: auditrecord.SeverityHigh,
	})

	app.RegisterServices(services.NewThesisService(persistence.NewThesisRepository(), tracker))
	return nil
}
