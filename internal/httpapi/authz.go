package httpapi

import (
	"crypto/subtle"
	"net/http"

	"carebridge.org/internal/audit"
	"carebridge.org/internal/auth"
	"carebridge.org/internal/obs"
)

const adminKeyHeader = "X-Admin-Key"

// RequireRole admits requests whose resolved principal holds one of the
// given roles.
func (a *API) RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return a.require(auth.AnyRole(roles...))
}

// RequirePermission admits requests whose principal's role grants the
// permission.
func (a *API) RequirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return a.require(auth.Needs(perm))
}

func (a *API) require(req auth.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				obs.ObserveAuthDecision("unauthenticated")
				unauthorized(w, r)
				return
			}
			if err := a.gate.Check(principal, req); err != nil {
				obs.ObserveAuthDecision("forbidden")
				_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
					"path": r.URL.Path,
				})
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminOnly guards coarse admin routes with a constant-time compare of the
// X-Admin-Key header. This sits apart from RBAC on purpose.
func (a *API) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := []byte(r.Header.Get(adminKeyHeader))
		if len(key) == 0 || subtle.ConstantTimeCompare(key, a.adminKey) != 1 {
			obs.ObserveAuthDecision("unauthenticated")
			unauthorized(w, r)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.access", map[string]any{
			"path": r.URL.Path,
		})
		next.ServeHTTP(w, r)
	})
}
