// Package engine implements the OIDC provider core: authorization, token,
// userinfo, discovery and session endpoints. The engine speaks the bridge's
// callback-style HTTP surface; it never touches net/http handlers directly.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"oidcgate/internal/oidc/audit"
	"oidcgate/internal/oidc/bridge"
	"oidcgate/internal/oidc/metrics"
	"oidcgate/internal/oidc/models"
	"oidcgate/internal/oidc/policy"
	"oidcgate/internal/platform/config"
)

// InteractionStore persists paused authorization flows.
type InteractionStore interface {
	Create(ctx context.Context, session *models.InteractionSession) error
	Find(ctx context.Context, uid string) (*models.InteractionSession, error)
	Update(ctx context.Context, session *models.InteractionSession) error
	Consume(ctx context.Context, uid string) (*models.InteractionSession, error)
	Delete(ctx context.Context, uid string) error
}

// GrantStore persists per account x client consent grants.
type GrantStore interface {
	FindByID(ctx context.Context, grantID string) (*models.Grant, error)
	FindByAccountAndClient(ctx context.Context, accountID, clientID string) (*models.Grant, error)
	Save(ctx context.Context, g *models.Grant, now time.Time) (string, error)
	Delete(ctx context.Context, grantID string) error
}

// TokenStore persists issued access tokens keyed by signed value.
type TokenStore interface {
	Save(ctx context.Context, t *models.AccessToken) error
	FindByValue(ctx context.Context, value string) (*models.AccessToken, error)
	Delete(ctx context.Context, value string) error
}

// CodeStore persists single-use authorization codes.
type CodeStore interface {
	Create(ctx context.Context, code *models.AuthorizationCode) error
	Consume(ctx context.Context, code, redirectURI string, now time.Time) (*models.AuthorizationCode, error)
}

// ClientFinder answers client lookups from the static registry.
type ClientFinder interface {
	Find(ctx context.Context, id string) (*models.Client, error)
}

// ClaimsSource resolves an account's attribute values for the userinfo
// endpoint. The embedding application implements it; userinfo discloses only
// the attributes the backing grant's claim names allow.
type ClaimsSource func(ctx context.Context, accountID string) (map[string]any, error)

// Engine is the provider core. It is constructed once by the provider
// factory and shared by the bridge handler and the service facade.
type Engine struct {
	cfg          config.OIDC
	clients      ClientFinder
	interactions InteractionStore
	grants       GrantStore
	tokens       TokenStore
	codes        CodeStore
	scopeClaims  models.ScopeClaims
	policy       *policy.Policy
	signer       *Signer
	claims       ClaimsSource
	audit        *audit.Publisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// Deps carries everything the engine needs. All fields are required except
// Claims, Audit, Metrics and Now.
type Deps struct {
	Config       config.OIDC
	Clients      ClientFinder
	Interactions InteractionStore
	Grants       GrantStore
	Tokens       TokenStore
	Codes        CodeStore
	ScopeClaims  models.ScopeClaims
	Policy       *policy.Policy
	Claims       ClaimsSource
	Audit        *audit.Publisher
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// New constructs the engine. Scope claims and policy fall back to the
// defaults when unset.
func New(d Deps) *Engine {
	if d.ScopeClaims == nil {
		d.ScopeClaims = models.DefaultScopeClaims()
	}
	if d.Policy == nil {
		d.Policy = policy.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{
		cfg:          d.Config,
		clients:      d.Clients,
		interactions: d.Interactions,
		grants:       d.Grants,
		tokens:       d.Tokens,
		codes:        d.Codes,
		scopeClaims:  d.ScopeClaims,
		policy:       d.Policy,
		signer:       NewSigner(d.Config.SigningKey, d.Config.Issuer, d.Config.ConsentAudience),
		claims:       d.Claims,
		audit:        d.Audit,
		logger:       d.Logger,
		metrics:      d.Metrics,
		now:          d.Now,
	}
}

// Signer exposes the engine's token signer to the service facade.
func (e *Engine) Signer() *Signer { return e.signer }

// Interactions exposes the session store to the service facade.
func (e *Engine) Interactions() InteractionStore { return e.interactions }

// Grants exposes the grant store to the service facade.
func (e *Engine) Grants() GrantStore { return e.grants }

// Tokens exposes the token store to the service facade.
func (e *Engine) Tokens() TokenStore { return e.tokens }

// Clients exposes the client registry to the service facade.
func (e *Engine) Clients() ClientFinder { return e.clients }

// ScopeClaims exposes the scope configuration to the service facade.
func (e *Engine) ScopeClaims() models.ScopeClaims { return e.scopeClaims }

// Policy exposes the prompt policy to the service facade.
func (e *Engine) Policy() *policy.Policy { return e.policy }

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time { return e.now() }

// Handle routes one bridged request. Completion is signalled per the bridge
// contract: JSON endpoints end the stream, redirect and error paths call
// done.
func (e *Engine) Handle(ctx context.Context, req *bridge.Request, res *bridge.ResponseWriter, done func(error)) {
	path := strings.TrimSuffix(req.URL.Path, "/")

	switch {
	case req.Method == http.MethodGet && path == "/.well-known/openid-configuration":
		e.handleDiscovery(res)
	case req.Method == http.MethodGet && path == "/jwks.json":
		e.handleJWKS(res)
	case req.Method == http.MethodGet && path == "/auth":
		e.handleAuthorize(ctx, req, res, done)
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/auth/resume/"):
		e.handleResume(ctx, strings.TrimPrefix(path, "/auth/resume/"), req, res, done)
	case req.Method == http.MethodPost && path == "/token":
		e.handleToken(ctx, req, res, done)
	case (req.Method == http.MethodGet || req.Method == http.MethodPost) && path == "/me":
		e.handleUserinfo(ctx, req, res)
	case req.Method == http.MethodGet && path == "/session/end":
		e.handleEndSession(ctx, req, res, done)
	default:
		writeJSON(res, http.StatusNotFound, map[string]string{
			"error":             "invalid_request",
			"error_description": "unknown endpoint",
		})
	}
}

// writeJSON serializes v onto the bridged response and ends the stream,
// which is one of the two valid completion signals.
func writeJSON(res *bridge.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		res.SetHeader("Content-Type", "application/json")
		res.WriteHeader(http.StatusInternalServerError)
		_, _ = res.Write([]byte(`{"error":"server_error"}`))
		res.End()
		return
	}
	res.SetHeader("Content-Type", "application/json")
	res.WriteHeader(status)
	_, _ = res.Write(body)
	res.End()
}

// redirect issues a 303 and signals completion through the done callback, the
// other valid completion signal.
func redirect(res *bridge.ResponseWriter, done func(error), location string) {
	res.SetHeader("Location", location)
	res.WriteHeader(http.StatusSeeOther)
	done(nil)
}

// oauthError writes a standard OAuth 2.0 error body.
func oauthError(res *bridge.ResponseWriter, status int, code, description string) {
	writeJSON(res, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func (e *Engine) interactionURL(uid string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(e.cfg.InteractionBaseURL, "/"), uid)
}

// ResumeURL is the absolute URL the browser follows to pick a paused flow
// back up after an interaction step resolved.
func (e *Engine) ResumeURL(uid string) string {
	return fmt.Sprintf("%s/oidc/auth/resume/%s", strings.TrimSuffix(e.cfg.Issuer, "/"), uid)
}
