package auth

import (
	"context"
	"strings"
	"sync"
)

// IdentityStore is the read-only persistence adapter the auth core depends
// on. Implementations return ErrNotFound for unknown identities.
type IdentityStore interface {
	FindByID(ctx context.Context, id int64) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
}

// MemoryStore keeps identities in memory. Used by tests and DSN-less
// development runs.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[int64]Identity
	byEmail map[string]Identity
}

var _ IdentityStore = (*MemoryStore)(nil)

func NewMemoryStore(identities ...Identity) *MemoryStore {
	s := &MemoryStore{
		byID:    make(map[int64]Identity, len(identities)),
		byEmail: make(map[string]Identity, len(identities)),
	}
	for _, ident := range identities {
		s.Put(ident)
	}
	return s
}

// Put inserts or replaces an identity record.
func (s *MemoryStore) Put(ident Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[ident.ID] = ident
	s.byEmail[normalizeEmail(ident.Email)] = ident
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ident, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &ident, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
