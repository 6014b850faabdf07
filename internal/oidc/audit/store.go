package audit

import (
	"context"
	"fmt"
	"sync"
)

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID string) ([]Event, error)
}

// InMemoryStore keeps events in memory for tests/dev.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ChannelSink hands events to a Worker via a channel, keeping the sink write
// off the request path. A full inbox drops the event rather than blocking a
// user-facing call.
type ChannelSink struct {
	inbox chan<- Event
}

func NewChannelSink(inbox chan<- Event) *ChannelSink {
	return &ChannelSink{inbox: inbox}
}

func (s *ChannelSink) Append(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return fmt.Errorf("audit inbox full, event dropped")
	}
}

// ListByAccount is unsupported on the channel sink; query the draining store.
func (s *ChannelSink) ListByAccount(context.Context, string) ([]Event, error) {
	return nil, fmt.Errorf("audit channel sink does not support listing")
}
