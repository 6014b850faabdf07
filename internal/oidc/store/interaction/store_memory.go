// Package interaction persists the ephemeral sessions of authorization flows
// paused for user input.
//
// Error Contract:
// - Find/Update/Consume return ErrNotFound (wrapped) for unknown, expired or
//   already-consumed uids; callers translate this to "restart the flow".
// - Consume removes the session, so a second Consume of the same uid fails.
package interaction

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

// InMemoryStore keeps interaction sessions in a TTL cache.
type InMemoryStore struct {
	cache *ttlcache.Cache[string, *models.InteractionSession]
}

// NewInMemoryStore constructs a session store with automatic TTL eviction.
func NewInMemoryStore() *InMemoryStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *models.InteractionSession](),
	)
	go cache.Start()
	return &InMemoryStore{cache: cache}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.InteractionSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("interaction session already expired: %w", sentinel.ErrExpired)
	}
	copied := *session
	s.cache.Set(session.UID, &copied, ttl)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, uid string) (*models.InteractionSession, error) {
	item := s.cache.Get(uid)
	if item == nil {
		return nil, fmt.Errorf("interaction session %q: %w", uid, sentinel.ErrNotFound)
	}
	copied := *item.Value()
	return &copied, nil
}

// Update overwrites a live session, keeping its original expiry.
func (s *InMemoryStore) Update(_ context.Context, session *models.InteractionSession) error {
	if s.cache.Get(session.UID) == nil {
		return fmt.Errorf("interaction session %q: %w", session.UID, sentinel.ErrNotFound)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		s.cache.Delete(session.UID)
		return fmt.Errorf("interaction session %q: %w", session.UID, sentinel.ErrExpired)
	}
	copied := *session
	s.cache.Set(session.UID, &copied, ttl)
	return nil
}

// Consume removes and returns the session. A consumed uid cannot resolve a
// second time.
func (s *InMemoryStore) Consume(_ context.Context, uid string) (*models.InteractionSession, error) {
	item := s.cache.Get(uid)
	if item == nil {
		return nil, fmt.Errorf("interaction session %q: %w", uid, sentinel.ErrNotFound)
	}
	s.cache.Delete(uid)
	copied := *item.Value()
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, uid string) error {
	s.cache.Delete(uid)
	return nil
}

// Stop halts the eviction loop.
func (s *InMemoryStore) Stop() {
	s.cache.Stop()
}
