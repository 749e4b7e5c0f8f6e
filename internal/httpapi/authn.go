package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"carebridge.org/internal/auth"
	"carebridge.org/internal/obs"
)

const (
	authHeader   = "Authorization"
	bearer       = "Bearer "
	userIDHeader = "X-User-Id"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// Admin routes carry their own key guard.
var publicPrefixes = []string{
	"/v1/roles/",
}

// withAuth resolves the caller's identity for protected paths and attaches
// the principal to the request context. Evidence precedence belongs to the
// gate; this middleware only extracts the headers.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ev := auth.Evidence{
			UserID: strings.TrimSpace(r.Header.Get(userIDHeader)),
		}
		if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
			ev.BearerToken = token
		}

		principal, err := a.gate.Resolve(r.Context(), ev)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				obs.ObserveAuthDecision("unauthenticated")
				unauthorized(w, r)
				return
			}
			obs.ObserveAuthDecision("error")
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		obs.ObserveAuthDecision("allowed")
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="carebridge"`)
	writeError(w, r, http.StatusUnauthorized, "unauthenticated")
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusForbidden, "forbidden")
}
