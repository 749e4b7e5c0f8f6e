// Package httpapi is the HTTP surface over the auth core. It translates
// gate decisions into 401/403 responses with generic bodies; internal error
// detail is logged, never returned to the caller.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"carebridge.org/internal/auth"
	"carebridge.org/internal/obs"
)

// ReadyProbe checks readiness dependencies, typically a database ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options wires the API's collaborators. All fields except Ready are
// required.
type Options struct {
	Service *auth.Service
	Gate    *auth.Gate
	Ready   ReadyProbe

	// AdminKey guards the admin routes with a plain header compare,
	// separate from RBAC.
	AdminKey string

	Version      string
	MaxBodyBytes int64

	LoginRatePerMinute int
	LoginRateBurst     int
}

// API is the HTTP layer.
type API struct {
	mux          *http.ServeMux
	svc          *auth.Service
	gate         *auth.Gate
	readyProbe   ReadyProbe
	adminKey     []byte
	version      string
	maxBodyBytes int64
	loginLimiter *ipLimiter
}

func New(opts Options) (*API, error) {
	if opts.Service == nil {
		return nil, errors.New("httpapi: auth service is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("httpapi: authorization gate is required")
	}
	if opts.AdminKey == "" {
		return nil, errors.New("httpapi: admin key is required")
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	perMinute := opts.LoginRatePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := opts.LoginRateBurst
	if burst <= 0 {
		burst = 5
	}

	a := &API{
		mux:          http.NewServeMux(),
		svc:          opts.Service,
		gate:         opts.Gate,
		readyProbe:   opts.Ready,
		adminKey:     []byte(opts.AdminKey),
		version:      opts.Version,
		maxBodyBytes: maxBody,
		loginLimiter: newIPLimiter(perMinute, burst),
	}

	a.mux.HandleFunc("/healthz", a.healthz)
	a.mux.HandleFunc("/readyz", a.ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.Handle("/v1/roles/", a.adminOnly(http.HandlerFunc(a.handleRolePermissions)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a, nil
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "carebridge-auth",
		"version": a.version,
	})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	body := map[string]any{"error": msg}
	if rid := requestIDFrom(r); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, code, body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	// A single JSON document per request.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid request body")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
