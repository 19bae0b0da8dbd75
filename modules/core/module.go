package core

import (
	auditservices "github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/modules/core/infrastructure/persistence"
	"github.com/univault/univault/modules/core/services"
	"github.com/univault/univault/pkg/application"
)

type Module struct{}

func NewModule() *Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "core"
}

// Register wires the tenant directory collaborators. Depends on the audit
// module being registered first.
func (m *Module) Register(app application.Application) error {
	auditService := app.Service(auditservices.AuditService{}).(*auditservices.AuditService)

	app.RegisterServices(
		services.NewInvitationService(
			persistence.NewInvitationRepository(),
			persistence.NewUniversityRepository(),
			persistence.NewMembershipRepository(),
			auditService,
		),
	)
	return nil
}
