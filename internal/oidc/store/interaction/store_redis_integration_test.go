//go:build integration

package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
	"oidcgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
	ctx   context.Context
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) newSession(uid string) *models.InteractionSession {
	now := time.Now()
	return &models.InteractionSession{
		UID: uid,
		Prompt: models.PromptDetail{
			Name:  models.PromptLogin,
			Login: &models.LoginDetail{},
		},
		Params: models.AuthorizationParams{
			ClientID:    "web-app",
			RedirectURI: "https://app.example.com/cb",
			Scope:       "openid",
		},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func (s *RedisStoreSuite) TestCreateAndFind() {
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("uid-1")))

	found, err := s.store.Find(s.ctx, "uid-1")
	s.Require().NoError(err)
	s.Equal(models.PromptLogin, found.Prompt.Name)
	s.Equal("web-app", found.Params.ClientID)
}

func (s *RedisStoreSuite) TestUpdateRoundTripsResult() {
	session := s.newSession("uid-1")
	s.Require().NoError(s.store.Create(s.ctx, session))

	session.AccountID = "acct-1"
	session.Result = &models.InteractionResult{
		Login: &models.LoginResult{AccountID: "acct-1"},
	}
	s.Require().NoError(s.store.Update(s.ctx, session))

	found, err := s.store.Find(s.ctx, "uid-1")
	s.Require().NoError(err)
	s.Equal("acct-1", found.AccountID)
	s.Require().NotNil(found.Result)
	s.Equal("acct-1", found.Result.Login.AccountID)
}

func (s *RedisStoreSuite) TestConsumeHasExactlyOneWinner() {
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("uid-1")))

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Consume(s.ctx, "uid-1"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	s.Equal(1, won)
}

func (s *RedisStoreSuite) TestExpiryEvicts() {
	session := s.newSession("uid-1")
	session.ExpiresAt = time.Now().Add(time.Second)
	s.Require().NoError(s.store.Create(s.ctx, session))

	s.Require().Eventually(func() bool {
		_, err := s.store.Find(s.ctx, "uid-1")
		return errors.Is(err, sentinel.ErrNotFound)
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}
