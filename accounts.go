package authcore

import (
	"context"
	"strings"
	"sync"
)

// MemoryAccountStore is an in-memory AccountStore keyed by email. It
// backs tests and the demo data set of the platform; production deploys
// plug in a database-backed implementation of AccountStore instead.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]AccountRecord
}

// NewMemoryAccountStore creates an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]AccountRecord),
	}
}

// GetByEmail returns the record for email or ErrAccountNotFound.
func (s *MemoryAccountStore) GetByEmail(_ context.Context, email string) (AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.accounts[normalizeEmail(email)]
	if !ok {
		return AccountRecord{}, ErrAccountNotFound
	}
	return record, nil
}

// Create inserts a new record or returns ErrAccountExists.
func (s *MemoryAccountStore) Create(_ context.Context, record AccountRecord) error {
	key := normalizeEmail(record.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[key]; ok {
		return ErrAccountExists
	}
	s.accounts[key] = record
	return nil
}

// Update replaces the stored record or returns ErrAccountNotFound.
func (s *MemoryAccountStore) Update(_ context.Context, record AccountRecord) error {
	key := normalizeEmail(record.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[key]; !ok {
		return ErrAccountNotFound
	}
	s.accounts[key] = record
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
