package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"carebridge.org/internal/auth"
)

// Store reads identity records from PostgreSQL. The auth core never writes
// through it; account provisioning lives elsewhere.
type Store struct {
	db *sql.DB
}

var _ auth.IdentityStore = (*Store)(nil)

// Open connects to PostgreSQL via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle. Used by tests with sqlmock.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

const identityColumns = `id, email, role, active, verified, password_hash, created_at, updated_at`

func (s *Store) FindByID(ctx context.Context, id int64) (*auth.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from identities where id = $1`, id)
	return scanIdentity(row)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from identities where lower(email) = $1`, email)
	return scanIdentity(row)
}

func scanIdentity(row *sql.Row) (*auth.Identity, error) {
	var (
		ident auth.Identity
		role  string
	)
	err := row.Scan(&ident.ID, &ident.Email, &role, &ident.Active, &ident.Verified,
		&ident.PasswordHash, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	parsed, err := auth.ParseRole(role)
	if err != nil {
		// A role outside the closed set is a data fault, not an identity.
		return nil, fmt.Errorf("identity %d: %w", ident.ID, err)
	}
	ident.Role = parsed
	return &ident, nil
}
