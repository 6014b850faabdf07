// Package provider owns the lifecycle of the OIDC engine: construction is
// lazy, memoized and gated on the feature flag, so a disabled deployment
// never pays for (or exposes) the provider.
package provider

import (
	"log/slog"
	"sync"
	"time"

	"oidcgate/internal/oidc/audit"
	"oidcgate/internal/oidc/bridge"
	"oidcgate/internal/oidc/engine"
	"oidcgate/internal/oidc/metrics"
	"oidcgate/internal/oidc/models"
	"oidcgate/internal/oidc/policy"
	"oidcgate/internal/platform/config"

	dErrors "oidcgate/pkg/domain-errors"
)

// Deps carries the stores and collaborators the factory wires into the
// engine on first use.
type Deps struct {
	Config       config.OIDC
	Clients      engine.ClientFinder
	Interactions engine.InteractionStore
	Grants       engine.GrantStore
	Tokens       engine.TokenStore
	Codes        engine.CodeStore
	ScopeClaims  models.ScopeClaims
	Policy       *policy.Policy
	Claims       engine.ClaimsSource
	Audit        *audit.Publisher
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Factory hands out the singleton engine. Safe for concurrent use: the first
// caller constructs, everyone else observes the same result, success or
// failure alike.
type Factory struct {
	deps Deps

	once   sync.Once
	engine *engine.Engine
	err    error
}

// NewFactory captures the dependencies without constructing anything.
func NewFactory(deps Deps) *Factory {
	return &Factory{deps: deps}
}

// Provider returns the memoized engine, constructing it on first call. When
// the subsystem is disabled the factory fails fast with a disabled error and
// never touches the stores; the result, either way, is sticky.
func (f *Factory) Provider() (*engine.Engine, error) {
	f.once.Do(func() {
		if !f.deps.Config.Enabled {
			f.err = dErrors.New(dErrors.CodeDisabled, "oidc provider is disabled for this deployment")
			return
		}
		f.deps.Logger.Info("constructing oidc provider engine",
			"issuer", f.deps.Config.Issuer,
		)
		f.engine = engine.New(engine.Deps{
			Config:       f.deps.Config,
			Clients:      f.deps.Clients,
			Interactions: f.deps.Interactions,
			Grants:       f.deps.Grants,
			Tokens:       f.deps.Tokens,
			Codes:        f.deps.Codes,
			ScopeClaims:  f.deps.ScopeClaims,
			Policy:       f.deps.Policy,
			Claims:       f.deps.Claims,
			Audit:        f.deps.Audit,
			Logger:       f.deps.Logger,
			Metrics:      f.deps.Metrics,
			Now:          f.deps.Now,
		})
	})
	return f.engine, f.err
}

// Enabled reports the feature flag without constructing the engine. Routes
// use it to answer a plain 404 before any bridging happens.
func (f *Factory) Enabled() bool {
	return f.deps.Config.Enabled
}

// GrantTTL exposes the configured grant lifetime; zero means grants do not
// expire.
func (f *Factory) GrantTTL() time.Duration {
	return f.deps.Config.GrantTTL
}

// Handler returns the engine as a bridgeable handler for the route layer.
func (f *Factory) Handler() (bridge.Handler, error) {
	eng, err := f.Provider()
	if err != nil {
		return nil, err
	}
	return eng, nil
}
