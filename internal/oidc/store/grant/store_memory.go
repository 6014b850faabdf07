package grant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this pattern:
// - Return ErrNotFound (wrapped) when the requested grant does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore keeps grants in memory for tests/dev.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*models.Grant
	byPair map[string]string // accountID+clientID -> grantID
}

// NewInMemoryStore constructs an empty in-memory grant store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*models.Grant),
		byPair: make(map[string]string),
	}
}

func pairKey(accountID, clientID string) string {
	return accountID + "\x00" + clientID
}

func (s *InMemoryStore) FindByID(_ context.Context, grantID string) (*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.byID[grantID]; ok {
		copied := cloneGrant(g)
		return copied, nil
	}
	return nil, fmt.Errorf("grant %q: %w", grantID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByAccountAndClient(_ context.Context, accountID, clientID string) (*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if grantID, ok := s.byPair[pairKey(accountID, clientID)]; ok {
		if g, ok := s.byID[grantID]; ok {
			return cloneGrant(g), nil
		}
	}
	return nil, fmt.Errorf("grant for account %q client %q: %w", accountID, clientID, sentinel.ErrNotFound)
}

// Save persists the grant, assigning an ID on first save, and returns the
// grant ID. Later saves overwrite by ID (last-write-wins, per the engine's
// session-store semantics).
func (s *InMemoryStore) Save(_ context.Context, g *models.Grant, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	s.byID[g.ID] = cloneGrant(g)
	s.byPair[pairKey(g.AccountID, g.ClientID)] = g.ID
	return g.ID, nil
}

func (s *InMemoryStore) Delete(_ context.Context, grantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.byID[grantID]
	if !ok {
		return fmt.Errorf("grant %q: %w", grantID, sentinel.ErrNotFound)
	}
	delete(s.byID, grantID)
	delete(s.byPair, pairKey(g.AccountID, g.ClientID))
	return nil
}

func cloneGrant(g *models.Grant) *models.Grant {
	copied := *g
	copied.OIDCScope = append([]string(nil), g.OIDCScope...)
	copied.OIDCClaims = append([]string(nil), g.OIDCClaims...)
	if g.Resources != nil {
		copied.Resources = make(map[string][]string, len(g.Resources))
		for k, v := range g.Resources {
			copied.Resources[k] = append([]string(nil), v...)
		}
	}
	return &copied
}
