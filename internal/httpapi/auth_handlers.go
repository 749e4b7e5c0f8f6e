package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"carebridge.org/internal/audit"
	"carebridge.org/internal/auth"
	"carebridge.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      auth.Role `json:"role"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.loginLimiter.allow(clientIP(r)) {
		w.Header().Set("Retry-After", "60")
		writeError(w, r, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.ObserveLogin("failure")
			_ = audit.LogEvent(r.Context(), "login.failure", map[string]any{
				"email": strings.TrimSpace(strings.ToLower(req.Email)),
			})
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	obs.ObserveLogin("success")
	_ = audit.LogEvent(r.Context(), "login.success", map[string]any{
		"email": result.Identity.Email,
		"role":  result.Identity.Role.String(),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Role:      result.Identity.Role,
	})
}

type meResponse struct {
	Subject     string            `json:"subject"`
	Role        auth.Role         `json:"role"`
	Permissions []auth.Permission `json:"permissions"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Subject:     principal.Subject,
		Role:        principal.Role,
		Permissions: a.gate.Bindings().PermissionsFor(principal.Role),
	})
}

type rolePermissionsResponse struct {
	Role        string            `json:"role"`
	Permissions []auth.Permission `json:"permissions"`
}

// handleRolePermissions serves GET /v1/roles/{role}/permissions. An unknown
// role answers with the empty set rather than an error: deny-by-default is
// part of the contract, not a failure.
func (a *API) handleRolePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "permissions" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	raw := parts[0]

	resp := rolePermissionsResponse{Role: raw, Permissions: []auth.Permission{}}
	if role, err := auth.ParseRole(raw); err == nil {
		resp.Role = role.String()
		resp.Permissions = a.gate.Bindings().PermissionsFor(role)
	}
	writeJSON(w, http.StatusOK, resp)
}
