package provider

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"oidcgate/internal/oidc/store/authcode"
	"oidcgate/internal/oidc/store/client"
	"oidcgate/internal/oidc/store/grant"
	"oidcgate/internal/oidc/store/interaction"
	"oidcgate/internal/oidc/store/token"
	"oidcgate/internal/platform/config"

	dErrors "oidcgate/pkg/domain-errors"
)

type FactorySuite struct {
	suite.Suite
	interactions *interaction.InMemoryStore
	tokens       *token.InMemoryStore
}

func (s *FactorySuite) SetupTest() {
	s.interactions = interaction.NewInMemoryStore()
	s.tokens = token.NewInMemoryStore()
}

func (s *FactorySuite) TearDownTest() {
	s.interactions.Stop()
	s.tokens.Stop()
}

func (s *FactorySuite) newFactory(enabled bool) *Factory {
	registry, err := client.NewRegistry(nil)
	s.Require().NoError(err)
	return NewFactory(Deps{
		Config: config.OIDC{
			Enabled:    enabled,
			Issuer:     "http://localhost:8080",
			SigningKey: "test-key",
		},
		Clients:      registry,
		Interactions: s.interactions,
		Grants:       grant.NewInMemoryStore(),
		Tokens:       s.tokens,
		Codes:        authcode.NewInMemoryStore(),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func (s *FactorySuite) TestProviderIsMemoized() {
	factory := s.newFactory(true)

	first, err := factory.Provider()
	s.Require().NoError(err)
	s.Require().NotNil(first)

	second, err := factory.Provider()
	s.Require().NoError(err)
	s.Same(first, second)
}

func (s *FactorySuite) TestDisabledFailsFast() {
	factory := s.newFactory(false)
	s.False(factory.Enabled())

	engine, err := factory.Provider()
	s.Nil(engine)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeDisabled))

	// The failure is sticky; flipping nothing, every later call sees it.
	_, err = factory.Provider()
	s.True(dErrors.Is(err, dErrors.CodeDisabled))
}

func (s *FactorySuite) TestConcurrentFirstCallersShareOneEngine() {
	factory := s.newFactory(true)

	const callers = 16
	results := make(chan any, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine, err := factory.Provider()
			if err != nil {
				results <- err
				return
			}
			results <- engine
		}()
	}
	wg.Wait()
	close(results)

	var seen []any
	for r := range results {
		seen = append(seen, r)
	}
	s.Require().Len(seen, callers)
	for _, r := range seen {
		s.Same(seen[0], r)
	}
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactorySuite))
}
