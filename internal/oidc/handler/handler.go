// Package handler exposes the OIDC subsystem over HTTP: the catch-all
// provider mount bridged into the engine, and the interaction endpoints the
// login/consent UI drives.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"oidcgate/internal/oidc/bridge"
	"oidcgate/internal/oidc/metrics"
	"oidcgate/internal/oidc/models"
	"oidcgate/internal/oidc/service"
	"oidcgate/internal/platform/middleware"
	"oidcgate/internal/transport/http/shared"

	dErrors "oidcgate/pkg/domain-errors"
)

// bridgeTimeout bounds how long one bridged provider call may take.
const bridgeTimeout = 30 * time.Second

// Service defines the interaction operations the UI endpoints need.
type Service interface {
	GetInteractionDetails(ctx context.Context, uid string) (*service.InteractionDetails, error)
	GetInteractionResult(ctx context.Context, uid string, result *models.InteractionResult) (string, error)
	FinishInteraction(ctx context.Context, uid string, result *models.InteractionResult) (string, error)
	FindOrCreateGrants(ctx context.Context, accountID, clientID, existingGrantID string) (*models.Grant, error)
	SaveGrant(ctx context.Context, g *models.Grant) (string, error)
}

// Handler handles the OIDC routes.
type Handler struct {
	logger   *slog.Logger
	provider ProviderSource
	service  Service
	metrics  *metrics.Metrics
	resolve  middleware.UserResolver
}

// ProviderSource is what the route layer needs from the provider factory:
// the flag, and a bridgeable engine.
type ProviderSource interface {
	Enabled() bool
	Handler() (bridge.Handler, error)
}

// New creates the OIDC Handler. resolve maps an inbound request to the
// logged-in application user; interaction submits require one.
func New(provider ProviderSource, svc Service, logger *slog.Logger, m *metrics.Metrics, resolve middleware.UserResolver) *Handler {
	return &Handler{
		logger:   logger,
		provider: provider,
		service:  svc,
		metrics:  m,
		resolve:  resolve,
	}
}

// Register registers the OIDC routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	oidcRouter := chi.NewRouter()
	oidcRouter.Use(middleware.Recovery(h.logger))
	oidcRouter.Use(middleware.RequestID)
	oidcRouter.Use(middleware.Logger(h.logger))
	oidcRouter.Use(middleware.Timeout(bridgeTimeout))
	oidcRouter.Use(middleware.AppUser(h.resolve))

	oidcRouter.Get("/.well-known/openid-configuration", h.handleBridged)
	oidcRouter.HandleFunc("/oidc/*", h.handleBridged)

	oidcRouter.Get("/interaction/{uid}", h.handleInteractionDetails)
	oidcRouter.Post("/interaction/{uid}/login", h.handleInteractionLogin)
	oidcRouter.Post("/interaction/{uid}/consent", h.handleInteractionConsent)

	r.Mount("/", oidcRouter)
}

// handleBridged drives one request through the bridge into the provider
// engine. A disabled deployment answers a plain 404 before any bridging or
// construction happens.
func (h *Handler) handleBridged(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.provider.Enabled() {
		http.NotFound(w, r)
		return
	}

	eng, err := h.provider.Handler()
	if err != nil {
		h.logger.ErrorContext(ctx, "provider construction failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	// The engine routes on provider-relative paths.
	bridged := r.Clone(ctx)
	bridged.URL.Path = strings.TrimPrefix(r.URL.Path, "/oidc")

	started := time.Now()
	result, err := bridge.Run(ctx, eng, bridged, bridge.WithTimeout(bridgeTimeout))
	if err != nil {
		h.logger.ErrorContext(ctx, "bridged provider call failed",
			"request_id", middleware.GetRequestID(ctx),
			"path", r.URL.Path,
			"error", err.Error(),
		)
		status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
		h.metrics.ObserveBridge(status, started)
		shared.WriteJSON(w, status, shared.ErrorBody{Error: "server_error"})
		return
	}

	h.metrics.ObserveBridge(result.Status, started)
	bridge.WriteResult(w, result)
}

// handleInteractionDetails returns what the UI needs to render the pending
// prompt.
func (h *Handler) handleInteractionDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := chi.URLParam(r, "uid")

	details, err := h.service.GetInteractionDetails(ctx, uid)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, details)
}

// handleInteractionLogin records the logged-in application user as the
// flow's identity and sends the browser to the resume endpoint.
func (h *Handler) handleInteractionLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := chi.URLParam(r, "uid")

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "an application session is required"))
		return
	}

	resume, err := h.service.FinishInteraction(ctx, uid, &models.InteractionResult{
		Login: &models.LoginResult{
			AccountID: userID,
			Remember:  r.PostFormValue("remember") == "true",
		},
	})
	if err != nil {
		h.logWarn(ctx, "interaction login rejected", uid, err)
		shared.WriteError(w, err)
		return
	}
	http.Redirect(w, r, resume, http.StatusSeeOther)
}

// handleInteractionConsent records the user's consent decision. Accepting
// unions the pending scopes into the grant; denying resolves the flow with
// access_denied. Either way the browser is sent to the resume endpoint.
func (h *Handler) handleInteractionConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := chi.URLParam(r, "uid")

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "an application session is required"))
		return
	}

	if err := r.ParseForm(); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid form body"))
		return
	}

	decision := r.PostFormValue("consent")
	switch decision {
	case "deny":
		resume, err := h.service.GetInteractionResult(ctx, uid, &models.InteractionResult{
			Error:            "access_denied",
			ErrorDescription: "the user denied the request",
		})
		if err != nil {
			h.logWarn(ctx, "interaction deny rejected", uid, err)
			shared.WriteError(w, err)
			return
		}
		http.Redirect(w, r, resume, http.StatusSeeOther)
		return
	case "accept":
	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "consent must be accept or deny"))
		return
	}

	details, err := h.service.GetInteractionDetails(ctx, uid)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	// The flow's identity, once fixed by the login step, must match the
	// session submitting consent.
	if details.AccountID != "" && details.AccountID != userID {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "interaction is bound to a different account"))
		return
	}

	g, err := h.service.FindOrCreateGrants(ctx, userID, details.Params.ClientID, details.GrantID)
	if err != nil {
		h.logWarn(ctx, "grant resolution failed", uid, err)
		shared.WriteError(w, err)
		return
	}
	g.AddOIDCScope(details.Params.Scope)
	if details.Prompt.Consent != nil {
		g.AddOIDCClaims(details.Prompt.Consent.MissingOIDCClaims)
		for indicator, scopes := range details.Prompt.Consent.MissingResourceScopes {
			g.AddResourceScope(indicator, strings.Join(scopes, " "))
		}
	}
	grantID, err := h.service.SaveGrant(ctx, g)
	if err != nil {
		h.logWarn(ctx, "grant save failed", uid, err)
		shared.WriteError(w, err)
		return
	}

	resume, err := h.service.GetInteractionResult(ctx, uid, &models.InteractionResult{
		Consent: &models.ConsentResult{GrantID: grantID},
	})
	if err != nil {
		h.logWarn(ctx, "interaction consent rejected", uid, err)
		shared.WriteError(w, err)
		return
	}
	http.Redirect(w, r, resume, http.StatusSeeOther)
}

func (h *Handler) logWarn(ctx context.Context, msg, uid string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"uid", uid,
		"error", err.Error(),
	)
}
