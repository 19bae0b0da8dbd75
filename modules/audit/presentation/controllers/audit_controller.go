package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/audit/infrastructure/persistence"
	"github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/pkg/application"
	"github.com/univault/univault/pkg/httpapi"
)

// AuditController exposes the trail as a read-only JSON API. The only
// mutation it accepts is the owner's single-record delete; everything else
// answers 405 so the append-only contract is visible at the HTTP surface.
type AuditController struct {
	app      application.Application
	audit    *services.AuditService
	basePath string
}

func NewAuditController(app application.Application) application.Controller {
	return &AuditController{
		app:      app,
		audit:    app.Service(services.AuditService{}).(*services.AuditService),
		basePath: "/audit",
	}
}

func (c *AuditController) Key() string {
	return c.basePath
}

func (c *AuditController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/records", c.list).Methods(http.MethodGet)
	router.HandleFunc("/records/{id:[0-9]+}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/records/{id:[0-9]+}", c.delete).Methods(http.MethodDelete)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteError(w, http.StatusMethodNotAllowed, "APPEND_ONLY", "audit records cannot be modified", nil)
	})
}

func (c *AuditController) list(w http.ResponseWriter, r *http.Request) {
	params, err := parseFindParams(r)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "BAD_FILTER", err.Error(), nil)
		return
	}

	records, err := c.audit.List(r.Context(), params)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	total, err := c.audit.Count(r.Context(), params)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	items := make([]*recordDTO, 0, len(records))
	for _, record := range records {
		items = append(items, toRecordDTO(record))
	}
	httpapi.WriteJSON(w, http.StatusOK, &httpapi.ListEnvelope{Items: items, Total: total})
}

func (c *AuditController) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "record id must be numeric", nil)
		return
	}

	record, err := c.audit.GetByID(r.Context(), uint(id))
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toRecordDTO(record))
}

func (c *AuditController) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "record id must be numeric", nil)
		return
	}

	if err := c.audit.Delete(r.Context(), uint(id)); err != nil {
		c.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *AuditController) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		httpapi.WriteError(w, http.StatusForbidden, "FORBIDDEN", "insufficient privileges", nil)
	case errors.Is(err, persistence.ErrRecordNotFound):
		httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "audit record not found", nil)
	default:
		httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "audit trail unavailable", nil)
	}
}

func parseFindParams(r *http.Request) (*auditrecord.FindParams, error) {
	q := r.URL.Query()
	params := &auditrecord.FindParams{
		ActorEmail: q.Get("actor_email"),
		TargetType: q.Get("target_type"),
		TargetID:   q.Get("target_id"),
		Limit:      25,
	}

	if action := q.Get("action"); action != "" {
		candidate := auditrecord.Action(action)
		if !candidate.IsValid() {
			return nil, errors.New("unknown action filter")
		}
		params.Action = candidate
	}
	if severity := q.Get("severity"); severity != "" {
		candidate := auditrecord.Severity(severity)
		if !candidate.IsValid() {
			return nil, errors.New("unknown severity filter")
		}
		params.Severity = candidate
	}
	if tenant := q.Get("tenant_id"); tenant != "" {
		id, err := uuid.Parse(tenant)
		if err != nil {
			return nil, errors.New("tenant_id must be a UUID")
		}
		params.TenantID = &id
	}
	if actor := q.Get("actor_id"); actor != "" {
		id, err := strconv.ParseUint(actor, 10, 64)
		if err != nil {
			return nil, errors.New("actor_id must be numeric")
		}
		actorID := uint(id)
		params.ActorID = &actorID
	}
	if from := q.Get("from"); from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, errors.New("from must be RFC 3339")
		}
		params.From = &ts
	}
	if to := q.Get("to"); to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, errors.New("to must be RFC 3339")
		}
		params.To = &ts
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 100 {
			return nil, errors.New("limit must be between 1 and 100")
		}
		params.Limit = n
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return nil, errors.New("offset must be non-negative")
		}
		params.Offset = n
	}
	return params, nil
}

type recordDTO struct {
	ID            uint           `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	ActorID       *uint          `json:"actor_id,omitempty"`
	ActorEmail    string         `json:"actor_email,omitempty"`
	ActorRole     string         `json:"actor_role,omitempty"`
	Action        string         `json:"action"`
	Severity      string         `json:"severity"`
	TenantID      string         `json:"tenant_id,omitempty"`
	TenantName    string         `json:"tenant_name,omitempty"`
	TargetType    string         `json:"target_type,omitempty"`
	TargetID      string         `json:"target_id,omitempty"`
	TargetRepr    string         `json:"target_repr,omitempty"`
	PreviousState map[string]any `json:"previous_state,omitempty"`
	NewState      map[string]any `json:"new_state,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	RequestPath   string         `json:"request_path,omitempty"`
	RequestMethod string         `json:"request_method,omitempty"`
	Description   string         `json:"description"`
}

func toRecordDTO(record *auditrecord.AuditRecord) *recordDTO {
	dto := &recordDTO{
		ID:            record.ID(),
		CreatedAt:     record.CreatedAt(),
		ActorID:       record.ActorID(),
		ActorEmail:    record.ActorEmail(),
		ActorRole:     record.ActorRole(),
		Action:        string(record.Action()),
		Severity:      string(record.Severity()),
		TenantName:    record.TenantName(),
		TargetType:    record.TargetType(),
		TargetID:      record.TargetID(),
		TargetRepr:    record.TargetRepr(),
		PreviousState: record.PreviousState(),
		NewState:      record.NewState(),
		IPAddress:     record.IPAddress(),
		RequestPath:   record.RequestPath(),
		RequestMethod: record.RequestMethod(),
		Description:   record.Description(),
	}
	if id := record.TenantID(); id != uuid.Nil {
		dto.TenantID = id.String()
	}
	return dto
}
