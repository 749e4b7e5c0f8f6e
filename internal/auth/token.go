package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 60 * time.Minute

// Claims is the verified payload of a bearer token.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig carries the process-wide token settings. It is constructed
// once at startup and handed to NewTokenIssuer; there is no ambient secret
// state. Rotating the secret invalidates every outstanding token.
type TokenConfig struct {
	// Secret signs and verifies tokens. Required.
	Secret string
	// Algorithm selects the HMAC variant: HS256 (default), HS384 or HS512.
	Algorithm string
	// TTL bounds token lifetime. Defaults to 60 minutes.
	TTL time.Duration
	// Issuer is embedded as the iss claim when non-empty.
	Issuer string
}

// TokenIssuer creates and validates signed, time-limited bearer tokens.
// Tokens are stateless: there is no server-side record and no revocation
// list.
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption tweaks issuer behavior.
type TokenOption func(*TokenIssuer)

// WithClock overrides the time source. Only intended for tests.
func WithClock(fn func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if fn != nil {
			t.now = fn
		}
	}
}

func NewTokenIssuer(cfg TokenConfig, opts ...TokenOption) (*TokenIssuer, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(strings.TrimSpace(cfg.Algorithm)) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", cfg.Algorithm)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer := &TokenIssuer{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		issuer: strings.TrimSpace(cfg.Issuer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue signs a token asserting subject and role, expiring after the
// configured TTL.
func (t *TokenIssuer) Issue(subject string, role Role) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("auth: subject is required")
	}
	if _, err := ParseRole(role.String()); err != nil {
		return "", time.Time{}, err
	}

	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the claims. The error kind
// distinguishes malformed, expired and badly signed tokens so callers can
// report unauthenticated instead of treating the request as anonymous.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformedToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != t.method {
			return nil, ErrInvalidSignature
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now().UTC() }))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrInvalidSignature):
			return nil, ErrInvalidSignature
		default:
			// Structural failures, including a role claim outside the
			// closed set, which fails during claim decoding.
			return nil, ErrMalformedToken
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMalformedToken
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrMalformedToken
	}
	if t.issuer != "" && claims.Issuer != t.issuer {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
