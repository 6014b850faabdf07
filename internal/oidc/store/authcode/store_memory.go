// Package authcode stores single-use authorization codes.
//
// Error Contract:
// - FindByCode/Consume return ErrNotFound (wrapped) for unknown codes.
// - Consume surfaces ErrExpired/ErrAlreadyUsed/ErrInvalidState from the
//   code's own validation so the token endpoint can answer with the right
//   OAuth error without string matching.
package authcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

// InMemoryStore stores authorization codes in memory for tests/dev.
type InMemoryStore struct {
	mu    sync.Mutex
	codes map[string]*models.AuthorizationCode
}

// NewInMemoryStore constructs an empty in-memory code store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{codes: make(map[string]*models.AuthorizationCode)}
}

func (s *InMemoryStore) Create(_ context.Context, code *models.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = code
	return nil
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.codes[code]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, fmt.Errorf("authorization code not found: %w", sentinel.ErrNotFound)
}

// Consume marks the code used if it validates against the presented
// redirect_uri. Validation and the used-flag flip happen under one lock, so
// concurrent exchanges of the same code settle to exactly one winner.
func (s *InMemoryStore) Consume(_ context.Context, code, redirectURI string, now time.Time) (*models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("authorization code not found: %w", sentinel.ErrNotFound)
	}

	if err := record.ValidateForConsume(redirectURI, now); err != nil {
		return nil, err
	}

	record.MarkUsed()
	copied := *record
	return &copied, nil
}

// DeleteExpired removes codes past their TTL as of now. The time is injected
// for testability.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for code, record := range s.codes {
		if record.ExpiresAt.Before(now) {
			delete(s.codes, code)
			deleted++
		}
	}
	return deleted, nil
}

// IsAlreadyUsed reports whether err marks a replayed code, which security
// policy treats as a signal to revoke the session's tokens.
func IsAlreadyUsed(err error) bool {
	return errors.Is(err, sentinel.ErrAlreadyUsed)
}
