// Package token persists issued access tokens keyed by their signed value.
// Validation is a lookup: absence means invalid, expired or consumed.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

// InMemoryStore keeps tokens in a TTL cache so expired tokens vanish without
// a sweeper goroutine of our own.
type InMemoryStore struct {
	cache *ttlcache.Cache[string, *models.AccessToken]
}

// NewInMemoryStore constructs a token store with automatic TTL eviction.
func NewInMemoryStore() *InMemoryStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *models.AccessToken](),
	)
	go cache.Start()
	return &InMemoryStore{cache: cache}
}

// Save stores the token until it expires.
func (s *InMemoryStore) Save(_ context.Context, t *models.AccessToken) error {
	ttl := time.Until(t.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token already expired: %w", sentinel.ErrExpired)
	}
	copied := *t
	s.cache.Set(t.Value, &copied, ttl)
	return nil
}

// FindByValue looks a token up by its signed value.
func (s *InMemoryStore) FindByValue(_ context.Context, value string) (*models.AccessToken, error) {
	item := s.cache.Get(value)
	if item == nil {
		return nil, fmt.Errorf("access token: %w", sentinel.ErrNotFound)
	}
	copied := *item.Value()
	return &copied, nil
}

// Delete removes a token, invalidating it immediately.
func (s *InMemoryStore) Delete(_ context.Context, value string) error {
	s.cache.Delete(value)
	return nil
}

// Stop halts the eviction loop. Used by tests and shutdown.
func (s *InMemoryStore) Stop() {
	s.cache.Stop()
}
