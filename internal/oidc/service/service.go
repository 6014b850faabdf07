// Package service is the programmatic facade over the OIDC engine for the
// rest of the application: token validation for middleware, interaction
// plumbing for the consent UI, and grant management.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"oidcgate/internal/oidc/audit"
	"oidcgate/internal/oidc/engine"
	"oidcgate/internal/oidc/metrics"
	"oidcgate/internal/oidc/models"
	"oidcgate/internal/oidc/provider"
	"oidcgate/pkg/platform/sentinel"

	dErrors "oidcgate/pkg/domain-errors"
)

// InteractionDetails is what the interaction UI needs to render the pending
// prompt.
type InteractionDetails struct {
	UID    string                     `json:"uid"`
	Prompt models.PromptDetail        `json:"prompt"`
	Params models.AuthorizationParams `json:"params"`
	Client models.Metadata            `json:"client"`
	// AccountID is set once a login result has been recorded for the flow.
	AccountID string `json:"account_id,omitempty"`
	// GrantID names the grant a previous partial consent bound to the flow,
	// for callers that want to resolve and extend it.
	GrantID string `json:"grant_id,omitempty"`
}

// Service wraps the provider factory. Every operation obtains the engine
// lazily so a disabled deployment fails calls fast without construction.
type Service struct {
	factory *provider.Factory
	audit   *audit.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New builds the facade. The audit publisher and metrics may be nil.
func New(factory *provider.Factory, auditPub *audit.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		factory: factory,
		audit:   auditPub,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("oidcgate/oidc/service"),
	}
}

func (s *Service) engine() (*engine.Engine, error) {
	return s.factory.Provider()
}

// ValidateToken resolves a bearer access token value into its payload.
// Unknown, expired or revoked tokens all answer the same unauthorized error.
func (s *Service) ValidateToken(ctx context.Context, value string) (*models.TokenPayload, error) {
	ctx, span := s.tracer.Start(ctx, "oidc.ValidateToken")
	defer span.End()

	eng, err := s.engine()
	if err != nil {
		return nil, err
	}
	if value == "" {
		s.metrics.IncrementTokenValidations("missing")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "access token required")
	}

	stored, err := eng.Tokens().FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementTokenValidations("unknown")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "access token is unknown, expired or revoked")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token lookup failed")
	}
	if _, err := eng.Signer().Verify(value); err != nil {
		s.metrics.IncrementTokenValidations("invalid_signature")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "access token signature is invalid")
	}

	s.metrics.IncrementTokenValidations("ok")
	span.SetAttributes(attribute.String("oidc.client_id", stored.ClientID))
	return &models.TokenPayload{
		Sub:       stored.AccountID,
		ClientID:  stored.ClientID,
		Scope:     stored.Scope,
		JTI:       stored.JTI,
		IssuedAt:  stored.IssuedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// GetInteractionDetails returns the pending prompt for a paused flow, plus
// the client's disclosable metadata for the consent screen.
func (s *Service) GetInteractionDetails(ctx context.Context, uid string) (*InteractionDetails, error) {
	ctx, span := s.tracer.Start(ctx, "oidc.GetInteractionDetails")
	defer span.End()

	eng, err := s.engine()
	if err != nil {
		return nil, err
	}

	session, err := s.findSession(ctx, eng, uid)
	if err != nil {
		return nil, err
	}

	cl, err := eng.Clients().Find(ctx, session.Params.ClientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "client lookup failed")
	}

	return &InteractionDetails{
		UID:       session.UID,
		Prompt:    session.Prompt,
		Params:    session.Params,
		Client:    cl.Metadata(),
		AccountID: session.AccountID,
		GrantID:   session.GrantID,
	}, nil
}

// GetInteractionResult records the single authoritative resolution for a
// paused flow and returns the absolute URL the browser should follow to
// resume it. The submitted result replaces any prior partial submissions;
// nothing is merged. A second call for the same uid is rejected.
func (s *Service) GetInteractionResult(ctx context.Context, uid string, result *models.InteractionResult) (string, error) {
	ctx, span := s.tracer.Start(ctx, "oidc.GetInteractionResult")
	defer span.End()

	eng, err := s.engine()
	if err != nil {
		return "", err
	}
	if err := result.Validate(); err != nil {
		return "", err
	}

	session, err := s.findSession(ctx, eng, uid)
	if err != nil {
		return "", err
	}
	if session.Resolved {
		return "", dErrors.New(dErrors.CodeInvalidRequest, "interaction was already resolved")
	}
	if err := checkAccountContinuity(session, result); err != nil {
		return "", err
	}

	session.Result = result
	if result.Login != nil {
		session.AccountID = result.Login.AccountID
	}
	session.Resolved = true
	if err := s.updateSession(ctx, eng, session); err != nil {
		return "", err
	}

	s.emitAudit(ctx, session, result)
	return eng.ResumeURL(uid), nil
}

// FinishInteraction merges a submitted partial result into the paused
// session and returns the resume URL. Unlike GetInteractionResult it keeps
// earlier members the new submission does not replace, which is how the
// login step hands off to consent.
func (s *Service) FinishInteraction(ctx context.Context, uid string, result *models.InteractionResult) (string, error) {
	ctx, span := s.tracer.Start(ctx, "oidc.FinishInteraction")
	defer span.End()

	eng, err := s.engine()
	if err != nil {
		return "", err
	}
	if err := result.Validate(); err != nil {
		return "", err
	}

	session, err := s.findSession(ctx, eng, uid)
	if err != nil {
		return "", err
	}
	if session.Resolved {
		return "", dErrors.New(dErrors.CodeInvalidRequest, "interaction was already resolved")
	}
	if err := checkAccountContinuity(session, result); err != nil {
		return "", err
	}

	session.Result = session.Result.Merge(result)
	if result.Login != nil {
		session.AccountID = result.Login.AccountID
	}
	if err := s.updateSession(ctx, eng, session); err != nil {
		return "", err
	}

	s.emitAudit(ctx, session, result)
	return eng.ResumeURL(uid), nil
}

// findSession translates store misses into the consent surface's wire
// contract: an unknown or expired uid answers invalid_request.
func (s *Service) findSession(ctx context.Context, eng *engine.Engine, uid string) (*models.InteractionSession, error) {
	session, err := eng.Interactions().Find(ctx, uid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidRequest, "interaction session is unknown or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "interaction lookup failed")
	}
	return session, nil
}

func (s *Service) updateSession(ctx context.Context, eng *engine.Engine, session *models.InteractionSession) error {
	if err := eng.Interactions().Update(ctx, session); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return dErrors.New(dErrors.CodeInvalidRequest, "interaction session is unknown or expired")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "interaction update failed")
	}
	return nil
}

// checkAccountContinuity rejects a result naming a different account than
// the one the flow's login step already fixed.
func checkAccountContinuity(session *models.InteractionSession, result *models.InteractionResult) error {
	if session.AccountID != "" && result.Login != nil && result.Login.AccountID != session.AccountID {
		return dErrors.New(dErrors.CodeForbidden, "interaction is bound to a different account")
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, session *models.InteractionSession, result *models.InteractionResult) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		AccountID: session.AccountID,
		ClientID:  session.Params.ClientID,
		UID:       session.UID,
	}
	switch {
	case result.Denied():
		event.Action = audit.ActionConsentDenied
		event.Reason = result.ErrorDescription
	case result.Consent != nil:
		event.Action = audit.ActionConsentGranted
		event.GrantID = result.Consent.GrantID
	case result.Login != nil:
		event.Action = audit.ActionLoginResolved
	default:
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

// FindOrCreateGrants resolves the grant consent should mutate: the named
// existing grant when resolvable, the stored account x client grant
// otherwise, or a fresh unsaved one. Nothing is persisted here; callers
// union scopes and claims onto the returned grant and then call SaveGrant.
func (s *Service) FindOrCreateGrants(ctx context.Context, accountID, clientID, existingGrantID string) (*models.Grant, error) {
	ctx, span := s.tracer.Start(ctx, "oidc.FindOrCreateGrants")
	defer span.End()

	eng, err := s.engine()
	if err != nil {
		return nil, err
	}
	if accountID == "" || clientID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "accountId and clientId are required")
	}

	now := eng.Now()
	if existingGrantID != "" {
		g, err := eng.Grants().FindByID(ctx, existingGrantID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "grant lookup failed")
		}
		if g != nil && g.AccountID == accountID && g.ClientID == clientID && !g.Expired(now) {
			return g, nil
		}
	}

	g, err := eng.Grants().FindByAccountAndClient(ctx, accountID, clientID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "grant lookup failed")
		}
		return models.NewGrant(accountID, clientID), nil
	}
	if g.Expired(now) {
		return models.NewGrant(accountID, clientID), nil
	}
	return g, nil
}

// SaveGrant persists a grant the caller assembled and returns its id.
// Repeating the same mutations and saving again is a no-op on the stored
// sets.
func (s *Service) SaveGrant(ctx context.Context, g *models.Grant) (string, error) {
	ctx, span := s.tracer.Start(ctx, "oidc.SaveGrant")
	defer span.End()

	eng, err := s.engine()
	if err != nil {
		return "", err
	}
	if g == nil || g.AccountID == "" || g.ClientID == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "grant must carry an accountId and clientId")
	}

	now := eng.Now()
	if ttl := s.factory.GrantTTL(); ttl > 0 && g.ExpiresAt.IsZero() {
		g.ExpiresAt = now.Add(ttl)
	}

	grantID, err := eng.Grants().Save(ctx, g, now)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "grant save failed")
	}
	span.SetAttributes(attribute.String("oidc.grant_id", grantID))
	return grantID, nil
}

// GetClientMetadata returns the disclosable attributes of a registered
// client.
func (s *Service) GetClientMetadata(ctx context.Context, clientID string) (models.Metadata, error) {
	ctx, span := s.tracer.Start(ctx, "oidc.GetClientMetadata")
	defer span.End()

	eng, err := s.engine()
	if err != nil {
		return models.Metadata{}, err
	}
	cl, err := eng.Clients().Find(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Metadata{}, dErrors.New(dErrors.CodeNotFound, "client is not registered")
		}
		return models.Metadata{}, dErrors.Wrap(err, dErrors.CodeInternal, "client lookup failed")
	}
	return cl.Metadata(), nil
}
