package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testGate(t *testing.T, store IdentityStore, opts ...GateOption) (*Gate, *TokenIssuer) {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{Secret: "gate-secret", Issuer: "carebridge-test"})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	gate, err := NewGate(issuer, store, DefaultBindings(), opts...)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return gate, issuer
}

func TestGateNoEvidence(t *testing.T) {
	gate, _ := testGate(t, nil)

	_, err := gate.Authorize(context.Background(), Evidence{}, AnyRole(RoleProviderAdmin))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestGateRoleSetForbidden(t *testing.T) {
	gate, issuer := testGate(t, nil)

	token, _, err := issuer.Issue("worker@example.com", RoleSupportWorker)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = gate.Authorize(context.Background(), Evidence{BearerToken: token},
		AnyRole(RoleProviderAdmin, RoleServiceManager))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGateRoleSetAllowed(t *testing.T) {
	gate, issuer := testGate(t, nil)

	token, _, err := issuer.Issue("manager@example.com", RoleServiceManager)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	p, err := gate.Authorize(context.Background(), Evidence{BearerToken: token},
		AnyRole(RoleProviderAdmin, RoleServiceManager))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if p.Subject != "manager@example.com" || p.Role != RoleServiceManager {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestGatePermissionRequirement(t *testing.T) {
	gate, issuer := testGate(t, nil)

	token, _, err := issuer.Issue("finance@example.com", RoleFinance)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := gate.Authorize(context.Background(), Evidence{BearerToken: token}, Needs(PermViewBilling)); err != nil {
		t.Fatalf("expected finance to view billing: %v", err)
	}
	_, err = gate.Authorize(context.Background(), Evidence{BearerToken: token}, Needs(PermEditCarePlan))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGateBadTokenIsUnauthenticated(t *testing.T) {
	gate, _ := testGate(t, nil)

	_, err := gate.Authorize(context.Background(), Evidence{BearerToken: "not.a.token"}, Requirement{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	// The precise token failure stays observable for logging.
	if !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected wrapped ErrMalformedToken, got %v", err)
	}
}

func TestGateAttachedIdentityWins(t *testing.T) {
	gate, _ := testGate(t, nil)

	ident := &Identity{ID: 7, Email: "admin@example.com", Role: RoleProviderAdmin, Active: true, Verified: true}
	p, err := gate.Authorize(context.Background(),
		Evidence{Identity: ident, BearerToken: "ignored-garbage"},
		Needs(PermManageSystem))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if p.Subject != "admin@example.com" {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestGateIdentityHeaderUntrustedByDefault(t *testing.T) {
	store := NewMemoryStore(Identity{ID: 42, Email: "u42@example.com", Role: RoleFinance, Active: true, Verified: true})
	gate, _ := testGate(t, store)

	_, err := gate.Authorize(context.Background(), Evidence{UserID: "42"}, Requirement{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected header fallback to be off by default, got %v", err)
	}
}

func TestGateIdentityHeaderTrusted(t *testing.T) {
	store := NewMemoryStore(
		Identity{ID: 42, Email: "u42@example.com", Role: RoleFinance, Active: false, Verified: true},
		Identity{ID: 43, Email: "u43@example.com", Role: RoleCoordinator, Active: true, Verified: true},
	)
	gate, _ := testGate(t, store, TrustIdentityHeader())

	// Inactive account resolves to unauthenticated, not forbidden.
	_, err := gate.Authorize(context.Background(), Evidence{UserID: "42"}, Requirement{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for inactive account, got %v", err)
	}

	p, err := gate.Authorize(context.Background(), Evidence{UserID: "43"}, Needs(PermEditCarePlan))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if p.Role != RoleCoordinator {
		t.Fatalf("unexpected principal: %+v", p)
	}

	for _, header := range []string{"nope", "99", ""} {
		if _, err := gate.Authorize(context.Background(), Evidence{UserID: header}, Requirement{}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("UserID=%q: expected ErrUnauthenticated, got %v", header, err)
		}
	}
}

func TestGateAuthenticationOnlyRequirement(t *testing.T) {
	gate, issuer := testGate(t, nil)

	token, _, err := issuer.Issue("viewer@example.com", RoleViewer)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := gate.Authorize(context.Background(), Evidence{BearerToken: token}, Requirement{}); err != nil {
		t.Fatalf("zero requirement should only demand authentication: %v", err)
	}
}

func TestGateExpiredTokenKind(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	issuer, err := NewTokenIssuer(TokenConfig{Secret: "gate-secret"}, WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	gate, err := NewGate(issuer, NewMemoryStore(), DefaultBindings())
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	token, _, err := issuer.Issue("a@b.com", RoleFinance)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock = t0.Add(2 * time.Hour)
	_, err = gate.Authorize(context.Background(), Evidence{BearerToken: token}, Requirement{})
	if !errors.Is(err, ErrUnauthenticated) || !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected unauthenticated wrapping expired, got %v", err)
	}
}
