// Package client holds the static relying-party registry. Clients are
// configured at deploy time; the registry is immutable after load.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

// Registry answers client lookups from an in-memory index.
type Registry struct {
	clients map[string]*models.Client
}

// NewRegistry indexes the given clients by id. Duplicate ids are a
// configuration error.
func NewRegistry(clients []models.Client) (*Registry, error) {
	index := make(map[string]*models.Client, len(clients))
	for i := range clients {
		c := clients[i]
		if c.ID == "" {
			return nil, fmt.Errorf("client registry: client without client_id")
		}
		if _, dup := index[c.ID]; dup {
			return nil, fmt.Errorf("client registry: duplicate client_id %q", c.ID)
		}
		index[c.ID] = &c
	}
	return &Registry{clients: index}, nil
}

// LoadFile reads a JSON array of clients from path and builds a registry.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client registry: read %s: %w", path, err)
	}
	var clients []models.Client
	if err := json.Unmarshal(raw, &clients); err != nil {
		return nil, fmt.Errorf("client registry: parse %s: %w", path, err)
	}
	return NewRegistry(clients)
}

// Find returns the client registered under id.
func (r *Registry) Find(_ context.Context, id string) (*models.Client, error) {
	if c, ok := r.clients[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("client %q: %w", id, sentinel.ErrNotFound)
}

// All returns every registered client. Used by the discovery document and
// startup logging.
func (r *Registry) All() []*models.Client {
	out := make([]*models.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
