package engine

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"oidcgate/internal/oidc/bridge"
	"oidcgate/internal/oidc/models"
	"oidcgate/internal/oidc/policy"
	"oidcgate/pkg/platform/sentinel"
	pstrings "oidcgate/pkg/platform/strings"
)

// handleAuthorize validates a fresh authorization request and pauses it on
// the first required prompt. Client and redirect_uri errors answer 400
// directly; everything else redirects back to the client per RFC 6749 §4.1.2.1.
func (e *Engine) handleAuthorize(ctx context.Context, req *bridge.Request, res *bridge.ResponseWriter, done func(error)) {
	q := req.URL.Query()
	params := models.AuthorizationParams{
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		ResponseType: q.Get("response_type"),
		Scope:        q.Get("scope"),
		State:        q.Get("state"),
		Nonce:        q.Get("nonce"),
	}

	// The redirect_uri cannot be trusted until the client checks out, so
	// these two failures never redirect.
	client, err := e.clients.Find(ctx, params.ClientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			oauthError(res, http.StatusBadRequest, "invalid_client", "unknown client")
			return
		}
		done(err)
		return
	}
	if params.RedirectURI == "" || !client.RedirectURIAllowed(params.RedirectURI) {
		oauthError(res, http.StatusBadRequest, "invalid_request", "redirect_uri is not registered for the client")
		return
	}

	if params.ResponseType != "code" || !client.ResponseTypeAllowed("code") {
		e.redirectError(res, done, params, "unsupported_response_type", "only the code response type is supported")
		return
	}
	if !client.GrantTypeAllowed("authorization_code") {
		e.redirectError(res, done, params, "unauthorized_client", "client may not use the authorization code grant")
		return
	}

	scopes := strings.Fields(params.Scope)
	if len(scopes) == 0 || scopes[0] != "openid" {
		e.redirectError(res, done, params, "invalid_scope", "scope must start with openid")
		return
	}
	for _, s := range scopes {
		if !e.scopeClaims.Enabled(s) {
			e.redirectError(res, done, params, "invalid_scope", "scope "+s+" is not supported")
			return
		}
	}
	if !client.ScopeAllowed(scopes) {
		e.redirectError(res, done, params, "invalid_scope", "scope exceeds the client registration")
		return
	}

	detail, required := e.policy.NextPrompt(ctx, policy.CheckInput{
		Params:          params,
		RequestedScopes: scopes,
		RequestedClaims: e.scopeClaims.ClaimsFor(scopes),
	})
	if !required {
		// A fresh flow has no session, so the login prompt always fires.
		// Reaching here means the policy was customized away from that.
		e.issueCode(ctx, &models.InteractionSession{Params: params}, res, done)
		return
	}

	now := e.now()
	session := &models.InteractionSession{
		UID:       uuid.NewString(),
		Prompt:    detail,
		Params:    params,
		CreatedAt: now,
		ExpiresAt: now.Add(e.cfg.InteractionTTL),
	}
	if err := e.interactions.Create(ctx, session); err != nil {
		done(err)
		return
	}

	e.metrics.IncrementInteractionsStarted(string(detail.Name))
	e.logger.InfoContext(ctx, "authorization paused for interaction",
		"uid", session.UID,
		"client_id", params.ClientID,
		"prompt", detail.Name,
	)
	redirect(res, done, e.interactionURL(session.UID))
}

// handleResume picks a paused flow back up after the interaction UI submitted
// a result. It applies the result, asks the policy for the next prompt, and
// either pauses again or finishes with a code.
func (e *Engine) handleResume(ctx context.Context, uid string, req *bridge.Request, res *bridge.ResponseWriter, done func(error)) {
	session, err := e.interactions.Find(ctx, uid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			oauthError(res, http.StatusBadRequest, "invalid_request", "interaction session is unknown or already resolved")
			return
		}
		done(err)
		return
	}

	if session.Result == nil {
		// The browser came back without a decision; send it to the UI again.
		redirect(res, done, e.interactionURL(uid))
		return
	}

	if session.Result.Denied() {
		if _, err := e.interactions.Consume(ctx, uid); err != nil {
			done(err)
			return
		}
		e.metrics.IncrementInteractionsResolved("denied")
		e.redirectError(res, done, session.Params, session.Result.Error, session.Result.ErrorDescription)
		return
	}

	if session.Result.Login != nil {
		session.AccountID = session.Result.Login.AccountID
	}
	if session.AccountID == "" {
		redirect(res, done, e.interactionURL(uid))
		return
	}

	grant, err := e.lookupGrant(ctx, session)
	if err != nil {
		done(err)
		return
	}

	scopes := strings.Fields(session.Params.Scope)
	detail, required := e.policy.NextPrompt(ctx, policy.CheckInput{
		Params:          session.Params,
		AccountID:       session.AccountID,
		Grant:           grant,
		RequestedScopes: scopes,
		RequestedClaims: e.scopeClaims.ClaimsFor(scopes),
	})
	if required {
		session.Prompt = detail
		// A new prompt opens a new interaction round: the next submission
		// must be accepted again.
		session.Resolved = false
		if err := e.interactions.Update(ctx, session); err != nil {
			done(err)
			return
		}
		e.metrics.IncrementInteractionsStarted(string(detail.Name))
		redirect(res, done, e.interactionURL(uid))
		return
	}

	// The flow is complete. Consuming the session is what makes resolution
	// single-shot: a raced duplicate resume loses here.
	if _, err := e.interactions.Consume(ctx, uid); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			oauthError(res, http.StatusBadRequest, "invalid_request", "interaction session is unknown or already resolved")
			return
		}
		done(err)
		return
	}
	if grant != nil {
		session.GrantID = grant.ID
	}
	e.metrics.IncrementInteractionsResolved("completed")
	e.issueCode(ctx, session, res, done)
}

// lookupGrant resolves the grant the session is bound to: the one consent
// named, or the stored account x client grant.
func (e *Engine) lookupGrant(ctx context.Context, session *models.InteractionSession) (*models.Grant, error) {
	if session.Result != nil && session.Result.Consent != nil {
		g, err := e.grants.FindByID(ctx, session.Result.Consent.GrantID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		if g != nil {
			return g, nil
		}
	}
	g, err := e.grants.FindByAccountAndClient(ctx, session.AccountID, session.Params.ClientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if g.Expired(e.now()) {
		return nil, nil
	}
	return g, nil
}

// issueCode mints the single-use authorization code and sends the browser
// back to the client.
func (e *Engine) issueCode(ctx context.Context, session *models.InteractionSession, res *bridge.ResponseWriter, done func(error)) {
	now := e.now()
	granted := strings.Fields(session.Params.Scope)
	code := &models.AuthorizationCode{
		Code:        uuid.NewString(),
		AccountID:   session.AccountID,
		ClientID:    session.Params.ClientID,
		GrantID:     session.GrantID,
		Scope:       strings.Join(pstrings.DedupeAndTrim(granted), " "),
		RedirectURI: session.Params.RedirectURI,
		Nonce:       session.Params.Nonce,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.cfg.AuthCodeTTL),
	}
	if err := e.codes.Create(ctx, code); err != nil {
		done(err)
		return
	}

	e.logger.InfoContext(ctx, "authorization code issued",
		"client_id", code.ClientID,
		"account_id", code.AccountID,
	)

	location, err := appendQuery(session.Params.RedirectURI, map[string]string{
		"code":  code.Code,
		"state": session.Params.State,
	})
	if err != nil {
		done(err)
		return
	}
	redirect(res, done, location)
}

// redirectError sends an OAuth error back to the client's redirect_uri,
// carrying the original state.
func (e *Engine) redirectError(res *bridge.ResponseWriter, done func(error), params models.AuthorizationParams, code, description string) {
	location, err := appendQuery(params.RedirectURI, map[string]string{
		"error":             code,
		"error_description": description,
		"state":             params.State,
	})
	if err != nil {
		done(err)
		return
	}
	redirect(res, done, location)
}

func appendQuery(rawURL string, values map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range values {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
