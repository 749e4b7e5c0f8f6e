package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Evidence is the identity material extracted from an inbound request. At
// most one field is honored, in declaration order: an identity attached by a
// trusted upstream wins over a bearer token, which wins over the identity
// header fallback.
type Evidence struct {
	// Identity is a principal already resolved by upstream middleware.
	Identity *Identity
	// BearerToken is the raw token taken from the Authorization header.
	BearerToken string
	// UserID is the value of the X-User-Id fallback header.
	UserID string
}

// Requirement declares what an endpoint demands of its caller. The zero
// value requires authentication only.
type Requirement struct {
	roles      []Role
	permission Permission
	byPerm     bool
}

// AnyRole admits callers whose role is a member of the given set.
func AnyRole(roles ...Role) Requirement { return Requirement{roles: roles} }

// Needs admits callers whose role grants the permission.
func Needs(perm Permission) Requirement {
	return Requirement{permission: perm, byPerm: true}
}

// Gate is the per-request authorization decision point. It is stateless and
// safe for concurrent use; every call reads only the immutable configuration
// installed at construction plus its arguments.
type Gate struct {
	verifier      TokenVerifier
	store         IdentityStore
	bindings      Bindings
	trustIDHeader bool
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// TrustIdentityHeader enables the X-User-Id fallback. It bypasses signature
// verification entirely, so it is off by default and must only be enabled
// where the service is reachable from trusted internal callers alone.
func TrustIdentityHeader() GateOption {
	return func(g *Gate) { g.trustIDHeader = true }
}

func NewGate(verifier TokenVerifier, store IdentityStore, bindings Bindings, opts ...GateOption) (*Gate, error) {
	if verifier == nil {
		return nil, errors.New("auth: token verifier is required")
	}
	if store == nil {
		return nil, errors.New("auth: identity store is required")
	}
	if bindings == nil {
		bindings = DefaultBindings()
	}
	g := &Gate{verifier: verifier, store: store, bindings: bindings}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Bindings returns the installed role binding table.
func (g *Gate) Bindings() Bindings { return g.bindings }

// Resolve establishes the caller's identity from the evidence. Token
// failures of any kind surface as ErrUnauthenticated wrapping the precise
// cause; only identity-store faults propagate as-is.
func (g *Gate) Resolve(ctx context.Context, ev Evidence) (Principal, error) {
	if ev.Identity != nil {
		return Principal{Subject: ev.Identity.Email, Role: ev.Identity.Role}, nil
	}

	if token := strings.TrimSpace(ev.BearerToken); token != "" {
		claims, err := g.verifier.Verify(token)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return Principal{Subject: claims.Subject, Role: claims.Role}, nil
	}

	if raw := strings.TrimSpace(ev.UserID); raw != "" && g.trustIDHeader {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Principal{}, ErrUnauthenticated
		}
		ident, err := g.store.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Principal{}, ErrUnauthenticated
			}
			return Principal{}, err
		}
		if !ident.Active {
			// Explicitly inactive accounts are unauthenticated, not
			// forbidden.
			return Principal{}, ErrUnauthenticated
		}
		return Principal{Subject: ident.Email, Role: ident.Role}, nil
	}

	return Principal{}, ErrUnauthenticated
}

// Check enforces a requirement against an already resolved principal.
func (g *Gate) Check(p Principal, req Requirement) error {
	if len(req.roles) > 0 {
		for _, role := range req.roles {
			if role == p.Role {
				return nil
			}
		}
		return ErrForbidden
	}
	if req.byPerm {
		if g.bindings.Has(p.Role, req.permission) {
			return nil
		}
		return ErrForbidden
	}
	return nil
}

// Authorize resolves the caller and enforces the requirement in one step.
func (g *Gate) Authorize(ctx context.Context, ev Evidence, req Requirement) (Principal, error) {
	p, err := g.Resolve(ctx, ev)
	if err != nil {
		return Principal{}, err
	}
	if err := g.Check(p, req); err != nil {
		return Principal{}, err
	}
	return p, nil
}
