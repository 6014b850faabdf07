package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

type InteractionStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *InteractionStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InteractionStoreSuite) TearDownTest() {
	s.store.Stop()
}

func TestInteractionStoreSuite(t *testing.T) {
	suite.Run(t, new(InteractionStoreSuite))
}

func (s *InteractionStoreSuite) newSession(uid string) *models.InteractionSession {
	now := time.Now()
	return &models.InteractionSession{
		UID: uid,
		Prompt: models.PromptDetail{
			Name:  models.PromptLogin,
			Login: &models.LoginDetail{},
		},
		Params: models.AuthorizationParams{
			ClientID:     "web",
			RedirectURI:  "https://client.example.com/cb",
			ResponseType: "code",
			Scope:        "openid profile",
		},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func (s *InteractionStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	session := s.newSession("uid-1")

	s.Require().NoError(s.store.Create(ctx, session))

	found, err := s.store.Find(ctx, "uid-1")
	s.Require().NoError(err)
	s.Equal(models.PromptLogin, found.Prompt.Name)
	s.Equal("openid profile", found.Params.Scope)

	_, err = s.store.Find(ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InteractionStoreSuite) TestCreateRejectsExpired() {
	session := s.newSession("uid-exp")
	session.ExpiresAt = time.Now().Add(-time.Minute)
	s.Require().ErrorIs(s.store.Create(context.Background(), session), sentinel.ErrExpired)
}

func (s *InteractionStoreSuite) TestUpdateAdvancesPrompt() {
	ctx := context.Background()
	session := s.newSession("uid-2")
	s.Require().NoError(s.store.Create(ctx, session))

	session.AccountID = "u1"
	session.Prompt = models.PromptDetail{
		Name: models.PromptConsent,
		Consent: &models.ConsentDetail{
			MissingOIDCScope: []string{"profile"},
		},
	}
	s.Require().NoError(s.store.Update(ctx, session))

	found, err := s.store.Find(ctx, "uid-2")
	s.Require().NoError(err)
	s.Equal(models.PromptConsent, found.Prompt.Name)
	s.Equal("u1", found.AccountID)

	s.Require().ErrorIs(
		s.store.Update(ctx, s.newSession("never-created")),
		sentinel.ErrNotFound,
	)
}

// Sessions are single-resolution: consuming a uid twice must fail, so a
// replayed interaction result cannot produce a second redirect.
func (s *InteractionStoreSuite) TestConsumeIsTerminal() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newSession("uid-3")))

	consumed, err := s.store.Consume(ctx, "uid-3")
	s.Require().NoError(err)
	s.Equal("uid-3", consumed.UID)

	_, err = s.store.Consume(ctx, "uid-3")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Find(ctx, "uid-3")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
