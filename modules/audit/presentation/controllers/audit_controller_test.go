package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/audit/infrastructure/persistence"
	"github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/modules/core/domain/aggregates/user"
	"github.com/univault/univault/pkg/application"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/eventbus"
)

type fakeRepo struct {
	records []*auditrecord.AuditRecord
	deleted []uint
}

func (r *fakeRepo) Create(_ context.Context, record *auditrecord.AuditRecord) error {
	auditrecord.WithID(uint(len(r.records) + 1))(record)
	r.records = append(r.records, record)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uint) (*auditrecord.AuditRecord, error) {
	for _, record := range r.records {
		if record.ID() == id {
			return record, nil
		}
	}
	return nil, persistence.ErrRecordNotFound
}

func (r *fakeRepo) List(_ context.Context, params *auditrecord.FindParams) ([]*auditrecord.AuditRecord, error) {
	var out []*auditrecord.AuditRecord
	for _, record := range r.records {
		if params != nil && params.Severity != "" && record.Severity() != params.Severity {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *fakeRepo) Count(ctx context.Context, params *auditrecord.FindParams) (int64, error) {
	records, err := r.List(ctx, params)
	return int64(len(records)), err
}

func (r *fakeRepo) ListOlderThan(context.Context, time.Time) ([]*auditrecord.AuditRecord, error) {
	return nil, nil
}

func (r *fakeRepo) CountOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }
func (r *fakeRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeRepo) DeleteByID(_ context.Context, id uint) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func newTestRouter(t *testing.T, repo *fakeRepo) *mux.Router {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(log),
		Logger:   log,
	})
	app.RegisterServices(services.NewAuditService(repo, app.EventPublisher()))

	router := mux.NewRouter()
	NewAuditController(app).Register(router)
	return router
}

func asPrincipal(req *http.Request, role user.Role) *http.Request {
	p := user.New("dean@unikin.cd", user.WithID(7), user.WithRole(role))
	return req.WithContext(composables.WithUser(req.Context(), p))
}

func seededRepo() *fakeRepo {
	repo := &fakeRepo{}
	repo.Create(context.Background(), auditrecord.New(auditrecord.Login, auditrecord.SeverityLow,
		auditrecord.WithActor(nil, "a@unikin.cd", "admin")))
	repo.Create(context.Background(), auditrecord.New(auditrecord.UnivBulkDelete, auditrecord.SeverityCritical,
		auditrecord.WithActor(nil, "b@unikin.cd", "superadmin"),
		auditrecord.WithTenant(uuid.New(), "UNIKIN")))
	return repo
}

func TestAuditController_ListFiltersAndEnvelopes(t *testing.T) {
	router := newTestRouter(t, seededRepo())

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/audit/records?severity=CRITICAL", nil), user.RoleOwner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Items []map[string]any `json:"items"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, int64(1), envelope.Total)
	require.Len(t, envelope.Items, 1)
	require.Equal(t, "UNIV_BULK_DELETE", envelope.Items[0]["action"])
	require.Equal(t, "UNIKIN", envelope.Items[0]["tenant_name"])
}

func TestAuditController_ListRejectsUnknownSeverity(t *testing.T) {
	router := newTestRouter(t, seededRepo())

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/audit/records?severity=EXTREME", nil), user.RoleOwner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditController_ListForbiddenWithoutElevation(t *testing.T) {
	router := newTestRouter(t, seededRepo())

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/audit/records", nil), user.RoleStandard)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuditController_GetByID(t *testing.T) {
	router := newTestRouter(t, seededRepo())

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/audit/records/1", nil), user.RoleOwner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var dto map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	require.Equal(t, "LOGIN", dto["action"])

	req = asPrincipal(httptest.NewRequest(http.MethodGet, "/audit/records/99", nil), user.RoleOwner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditController_MutationsAnswer405(t *testing.T) {
	router := newTestRouter(t, seededRepo())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch} {
		req := asPrincipal(httptest.NewRequest(method, "/audit/records/1", nil), user.RoleOwner)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
}

func TestAuditController_DeleteOwnerOnly(t *testing.T) {
	repo := seededRepo()
	router := newTestRouter(t, repo)

	req := asPrincipal(httptest.NewRequest(http.MethodDelete, "/audit/records/1", nil), user.RoleSuperAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, repo.deleted)

	req = asPrincipal(httptest.NewRequest(http.MethodDelete, "/audit/records/1", nil), user.RoleOwner)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []uint{1}, repo.deleted)
}
