package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/modules/audit/services"
	"github.com/univault/univault/pkg/composables"
	"github.com/univault/univault/pkg/configuration"
)

// Sentinel watches response statuses for security-relevant outcomes that no
// service-level tracker sees: failed and privileged logins, and forbidden
// responses on sensitive paths. It runs outside authentication, records after
// the response is written and never alters the response itself.
type Sentinel struct {
	audit          *services.AuditService
	loginPath      string
	sensitivePaths []string
}

func NewSentinel(audit *services.AuditService, opts configuration.AuditOptions) *Sentinel {
	return &Sentinel{
		audit:          audit,
		loginPath:      opts.LoginPath,
		sensitivePaths: opts.SensitivePathList(),
	}
}

func (s *Sentinel) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			s.observe(r, recorder.status)
		})
	}
}

func (s *Sentinel) observe(r *http.Request, status int) {
	ctx := r.Context()
	switch {
	case r.Method == http.MethodPost && r.URL.Path == s.loginPath:
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			// The attempted identity matters for the trail; the password
			// never leaves the request.
			s.audit.Record(ctx, services.Entry{
				Action:      auditrecord.LoginFailed,
				Severity:    auditrecord.SeverityMedium,
				System:      true,
				ActorEmail:  attemptedIdentifier(ctx, r),
				Description: "failed login attempt",
			})
			return
		}
		if status < 300 {
			if principal := currentPrincipal(ctx); principal != nil && principal.IsElevated() {
				id := principal.ID()
				s.audit.Record(ctx, services.Entry{
					Action:      auditrecord.Login,
					Severity:    auditrecord.SeverityLow,
					ActorID:     &id,
					ActorEmail:  principal.Email(),
					ActorRole:   principal.Role(),
					Description: "administrator signed in",
				})
			}
		}

	case status == http.StatusForbidden && s.sensitive(r.URL.Path):
		entry := services.Entry{
			Action:      auditrecord.AccessDenied,
			Severity:    auditrecord.SeverityHigh,
			System:      true,
			Description: "forbidden response on sensitive path",
		}
		if principal := currentPrincipal(ctx); principal != nil {
			id := principal.ID()
			entry.System = false
			entry.ActorID, entry.ActorEmail, entry.ActorRole = &id, principal.Email(), principal.Role()
		}
		s.audit.Record(ctx, entry)
	}
}

func (s *Sentinel) sensitive(path string) bool {
	for _, fragment := range s.sensitivePaths {
		if fragment != "" && strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

// attemptedIdentifier prefers the identifier the login handler published to
// the shared params: a handler that decodes its body as JSON has already
// consumed it by the time the sentinel runs, so the form value is a fallback
// for form-encoded logins only.
func attemptedIdentifier(ctx context.Context, r *http.Request) string {
	if params, ok := composables.UseParams(ctx); ok && params.LoginIdentifier != "" {
		return params.LoginIdentifier
	}
	return r.PostFormValue("email")
}

// currentPrincipal reads the shared request params, which inner
// authentication middleware fills in even though its context never
// propagates back out to the sentinel.
func currentPrincipal(ctx context.Context) composables.Principal {
	if params, ok := composables.UseParams(ctx); ok && params.Principal != nil {
		return params.Principal
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
