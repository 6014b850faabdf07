package authcode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newCode(code string) *models.AuthorizationCode {
	return &models.AuthorizationCode{
		Code:        code,
		AccountID:   "acct-1",
		ClientID:    "client-1",
		GrantID:     "grant-1",
		Scope:       "openid profile",
		RedirectURI: "https://app.example.com/cb",
		CreatedAt:   s.now,
		ExpiresAt:   s.now.Add(time.Minute),
	}
}

func (s *InMemoryStoreSuite) TestConsumeHappyPath() {
	s.Require().NoError(s.store.Create(s.ctx, s.newCode("code-1")))

	record, err := s.store.Consume(s.ctx, "code-1", "https://app.example.com/cb", s.now)
	s.Require().NoError(err)
	s.True(record.Used)
	s.Equal("acct-1", record.AccountID)
}

func (s *InMemoryStoreSuite) TestConsumeIsSingleUse() {
	s.Require().NoError(s.store.Create(s.ctx, s.newCode("code-1")))

	_, err := s.store.Consume(s.ctx, "code-1", "https://app.example.com/cb", s.now)
	s.Require().NoError(err)

	_, err = s.store.Consume(s.ctx, "code-1", "https://app.example.com/cb", s.now)
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrAlreadyUsed))
	s.True(IsAlreadyUsed(err))
}

func (s *InMemoryStoreSuite) TestConsumeRejectsExpired() {
	s.Require().NoError(s.store.Create(s.ctx, s.newCode("code-1")))

	_, err := s.store.Consume(s.ctx, "code-1", "https://app.example.com/cb", s.now.Add(2*time.Minute))
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrExpired))
}

func (s *InMemoryStoreSuite) TestConsumeRejectsRedirectMismatch() {
	s.Require().NoError(s.store.Create(s.ctx, s.newCode("code-1")))

	_, err := s.store.Consume(s.ctx, "code-1", "https://evil.example.com/cb", s.now)
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrInvalidState))
}

func (s *InMemoryStoreSuite) TestConsumeUnknownCode() {
	_, err := s.store.Consume(s.ctx, "nope", "https://app.example.com/cb", s.now)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *InMemoryStoreSuite) TestDeleteExpired() {
	s.Require().NoError(s.store.Create(s.ctx, s.newCode("live")))
	stale := s.newCode("stale")
	stale.ExpiresAt = s.now.Add(-time.Minute)
	s.Require().NoError(s.store.Create(s.ctx, stale))

	deleted, err := s.store.DeleteExpired(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = s.store.FindByCode(s.ctx, "stale")
	s.True(errors.Is(err, sentinel.ErrNotFound))
	_, err = s.store.FindByCode(s.ctx, "live")
	s.NoError(err)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}
