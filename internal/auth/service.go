package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Service implements credential login and token authentication on top of the
// password hasher, the token issuer and the identity store.
type Service struct {
	store  IdentityStore
	issuer *TokenIssuer
}

func NewService(store IdentityStore, issuer *TokenIssuer) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: identity store is required")
	}
	if issuer == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	return &Service{store: store, issuer: issuer}, nil
}

// LoginResult is a successful credential exchange.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}

// Login verifies credentials against the stored hash and issues a bearer
// token. Unknown accounts, wrong passwords and inactive or unverified
// accounts all fail with ErrInvalidCredentials so the response carries no
// account-state oracle.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	ident, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !ident.Active || !ident.Verified {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !VerifyPassword(ident.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, expiresAt, err := s.issuer.Issue(ident.Email, ident.Role)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, Identity: *ident}, nil
}

// Authenticate verifies a bearer token and returns the principal it asserts.
func (s *Service) Authenticate(token string) (Principal, error) {
	claims, err := s.issuer.Verify(strings.TrimSpace(token))
	if err != nil {
		return Principal{}, err
	}
	return Principal{Subject: claims.Subject, Role: claims.Role}, nil
}
