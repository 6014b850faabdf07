package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type AuditSuite struct {
	suite.Suite
	store *InMemoryStore
	pub   *Publisher
	ctx   context.Context
}

func (s *AuditSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.pub = NewPublisher(s.store)
	s.ctx = context.Background()
}

func (s *AuditSuite) TestEmitStampsTimestamp() {
	err := s.pub.Emit(s.ctx, Event{
		Action:    ActionLoginResolved,
		AccountID: "acct-1",
	})
	s.Require().NoError(err)

	events, err := s.pub.List(s.ctx, "acct-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.False(events[0].Timestamp.IsZero())
	s.Equal(ActionLoginResolved, events[0].Action)
}

func (s *AuditSuite) TestListFiltersByAccount() {
	s.Require().NoError(s.pub.Emit(s.ctx, Event{Action: ActionConsentGranted, AccountID: "acct-1"}))
	s.Require().NoError(s.pub.Emit(s.ctx, Event{Action: ActionConsentDenied, AccountID: "acct-2"}))

	events, err := s.pub.List(s.ctx, "acct-2")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(ActionConsentDenied, events[0].Action)
}

func (s *AuditSuite) TestWorkerDrainsInbox() {
	inbox := make(chan Event, 2)
	worker := NewWorker(s.store, inbox)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{Action: ActionTokenIssued, AccountID: "acct-1", Timestamp: time.Now()}
	s.Require().Eventually(func() bool {
		events, err := s.store.ListByAccount(s.ctx, "acct-1")
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func TestAuditSuite(t *testing.T) {
	suite.Run(t, new(AuditSuite))
}
