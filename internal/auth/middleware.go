package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shiftdesk/shiftdesk/internal/platform/httpx"
)

// TargetFunc derives the resource descriptor a route acts on.
type TargetFunc func(r *http.Request, p *Principal) Target

// OwnTenant targets the principal's own tenant. Collection routes use it so the
// tenant check and the tenant-filtered query agree.
func OwnTenant(_ *http.Request, p *Principal) Target {
	if p == nil {
		return Target{}
	}
	return Target{TenantID: p.TenantID}
}

// Middleware wires authentication and authorization into HTTP handlers.
type Middleware struct {
	Service  *Service
	Logger   *slog.Logger
	Observer Observer
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate resolves the request principal or short-circuits with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.Service.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			m.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// Require evaluates policy against the resolved principal before next runs.
// A nil target uses the zero Target.
func (m Middleware) Require(policy Policy, target TargetFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			var t Target
			if target != nil {
				t = target(r, principal)
			}
			if d := policy.Evaluate(principal, t); !d.Allowed {
				if m.Observer != nil {
					m.Observer.AuthOutcome(StageRejected, d.Reason)
				}
				m.reject(w, r, d.Err())
				return
			}
			if m.Observer != nil {
				m.Observer.AuthOutcome(StageAuthorized, ReasonNone)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is Require with the admin-in-own-tenant policy.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.Require(NewPolicy(RequireAuthenticated, RequireRole(RoleAdmin), RequireSameTenant), OwnTenant)
}

func (m Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	reason := ReasonOf(err)
	if httpx.StatusOf(err) == http.StatusInternalServerError {
		if m.Logger != nil {
			m.Logger.Error("authentication failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
	} else if m.Logger != nil {
		m.Logger.Debug("request rejected", slog.String("path", r.URL.Path), slog.String("reason", string(reason)))
	}
	if reason == ReasonUnauthenticated {
		w.Header().Set("WWW-Authenticate", `Bearer realm="shiftdesk"`)
	}
	httpx.RespondError(w, err)
}
