package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"oidcgate/internal/oidc/audit"
	"oidcgate/internal/oidc/bridge"
	"oidcgate/internal/oidc/models"
	"oidcgate/pkg/platform/sentinel"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
	IDToken     string `json:"id_token,omitempty"`
}

// handleToken exchanges an authorization code for tokens. Error responses
// follow RFC 6749 §5.2.
func (e *Engine) handleToken(ctx context.Context, req *bridge.Request, res *bridge.ResponseWriter, done func(error)) {
	form, err := parseForm(req)
	if err != nil {
		oauthError(res, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	client, authErr := e.authenticateClient(ctx, req, form)
	if authErr != nil {
		res.SetHeader("WWW-Authenticate", `Basic realm="oidc"`)
		oauthError(res, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	if form.Get("grant_type") != "authorization_code" {
		oauthError(res, http.StatusBadRequest, "unsupported_grant_type", "only authorization_code is supported")
		return
	}
	codeValue := form.Get("code")
	redirectURI := form.Get("redirect_uri")
	if codeValue == "" || redirectURI == "" {
		oauthError(res, http.StatusBadRequest, "invalid_request", "code and redirect_uri are required")
		return
	}

	code, err := e.codes.Consume(ctx, codeValue, redirectURI, e.now())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			// A replayed code is a theft signal, logged at warn for alerting.
			e.logger.WarnContext(ctx, "authorization code replay detected", "client_id", client.ID)
			oauthError(res, http.StatusBadRequest, "invalid_grant", "authorization code already redeemed")
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired), errors.Is(err, sentinel.ErrInvalidState):
			oauthError(res, http.StatusBadRequest, "invalid_grant", "authorization code is invalid")
		default:
			done(err)
		}
		return
	}
	if code.ClientID != client.ID {
		oauthError(res, http.StatusBadRequest, "invalid_grant", "authorization code was issued to another client")
		return
	}

	now := e.now()
	signed, jti, err := e.signer.SignAccessToken(code.AccountID, client.ID, code.Scope, now, e.cfg.AccessTokenTTL)
	if err != nil {
		done(err)
		return
	}

	accessToken := &models.AccessToken{
		Value:     signed,
		JTI:       jti,
		AccountID: code.AccountID,
		ClientID:  client.ID,
		GrantID:   code.GrantID,
		Scope:     code.Scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(e.cfg.AccessTokenTTL),
	}
	if err := e.tokens.Save(ctx, accessToken); err != nil {
		done(err)
		return
	}

	response := tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(e.cfg.AccessTokenTTL.Seconds()),
		Scope:       code.Scope,
	}
	if strings.Contains(" "+code.Scope+" ", " openid ") {
		idToken, err := e.signer.SignIDToken(code.AccountID, client.ID, code.Nonce, code.CreatedAt, now, e.cfg.IDTokenTTL)
		if err != nil {
			done(err)
			return
		}
		response.IDToken = idToken
	}

	e.metrics.IncrementTokensIssued()
	e.logger.InfoContext(ctx, "tokens issued",
		"client_id", client.ID,
		"account_id", code.AccountID,
		"scope", code.Scope,
	)
	if e.audit != nil {
		if err := e.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionTokenIssued,
			AccountID: code.AccountID,
			ClientID:  client.ID,
			GrantID:   code.GrantID,
		}); err != nil {
			e.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionTokenIssued, "error", err)
		}
	}

	res.SetHeader("Cache-Control", "no-store")
	res.SetHeader("Pragma", "no-cache")
	writeJSON(res, http.StatusOK, response)
}

// authenticateClient resolves and authenticates the requesting client from
// Basic credentials, form credentials, or a bare client_id for public
// clients.
func (e *Engine) authenticateClient(ctx context.Context, req *bridge.Request, form url.Values) (*models.Client, error) {
	clientID := form.Get("client_id")
	secret := form.Get("client_secret")
	viaBasic := false

	if header := req.Header.Get("Authorization"); strings.HasPrefix(header, "Basic ") {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
		if err != nil {
			return nil, err
		}
		id, pw, ok := strings.Cut(string(decoded), ":")
		if !ok {
			return nil, errors.New("malformed basic credentials")
		}
		unescapedID, err := url.QueryUnescape(id)
		if err != nil {
			return nil, err
		}
		unescapedPW, err := url.QueryUnescape(pw)
		if err != nil {
			return nil, err
		}
		clientID, secret, viaBasic = unescapedID, unescapedPW, true
	}

	if clientID == "" {
		return nil, errors.New("missing client_id")
	}
	client, err := e.clients.Find(ctx, clientID)
	if err != nil {
		return nil, err
	}

	switch client.TokenEndpointAuthMethod {
	case models.AuthMethodClientSecretBasic:
		if !viaBasic {
			return nil, errors.New("client requires basic authentication")
		}
	case models.AuthMethodClientSecretPost:
		if viaBasic {
			return nil, errors.New("client requires post authentication")
		}
	}

	if err := client.Authenticate(secret); err != nil {
		return nil, err
	}
	return client, nil
}

func parseForm(req *bridge.Request) (url.Values, error) {
	if req.Body == nil {
		return url.Values{}, nil
	}
	raw, err := io.ReadAll(io.LimitReader(req.Body, 1<<16))
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(string(raw))
}

// handleUserinfo answers the userinfo endpoint from a bearer access token.
// The response carries sub plus every claim the backing grant discloses for
// which the claims source has a value.
func (e *Engine) handleUserinfo(ctx context.Context, req *bridge.Request, res *bridge.ResponseWriter) {
	header := req.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		res.SetHeader("WWW-Authenticate", `Bearer realm="oidc"`)
		oauthError(res, http.StatusUnauthorized, "invalid_token", "bearer token required")
		return
	}
	value := strings.TrimPrefix(header, "Bearer ")

	stored, err := e.tokens.FindByValue(ctx, value)
	if err != nil {
		res.SetHeader("WWW-Authenticate", `Bearer error="invalid_token"`)
		oauthError(res, http.StatusUnauthorized, "invalid_token", "token is unknown, expired or revoked")
		return
	}
	if _, err := e.signer.Verify(value); err != nil {
		res.SetHeader("WWW-Authenticate", `Bearer error="invalid_token"`)
		oauthError(res, http.StatusUnauthorized, "invalid_token", "token signature is invalid")
		return
	}

	claims := map[string]any{"sub": stored.AccountID}
	disclosed := e.disclosedClaims(ctx, stored)
	if len(disclosed) > 0 && e.claims != nil {
		attrs, err := e.claims(ctx, stored.AccountID)
		if err != nil {
			e.logger.WarnContext(ctx, "claims source failed", "account_id", stored.AccountID, "error", err)
		}
		for _, name := range disclosed {
			if name == "sub" {
				continue
			}
			if value, ok := attrs[name]; ok {
				claims[name] = value
			}
		}
	}
	writeJSON(res, http.StatusOK, claims)
}

// disclosedClaims resolves the claim names the token's grant authorizes,
// falling back to the token's own scope when the grant is gone.
func (e *Engine) disclosedClaims(ctx context.Context, token *models.AccessToken) []string {
	if token.GrantID != "" {
		g, err := e.grants.FindByID(ctx, token.GrantID)
		if err == nil && !g.Expired(e.now()) {
			return g.OIDCClaims
		}
	}
	return e.scopeClaims.ClaimsFor(strings.Fields(token.Scope))
}

// handleEndSession terminates the provider-side session and optionally sends
// the browser to a registered post-logout destination.
func (e *Engine) handleEndSession(ctx context.Context, req *bridge.Request, res *bridge.ResponseWriter, done func(error)) {
	q := req.URL.Query()
	clientID := q.Get("client_id")
	postLogout := q.Get("post_logout_redirect_uri")
	state := q.Get("state")

	if postLogout != "" && clientID != "" {
		client, err := e.clients.Find(ctx, clientID)
		if err == nil && client.PostLogoutRedirectURIAllowed(postLogout) {
			location, err := appendQuery(postLogout, map[string]string{"state": state})
			if err != nil {
				done(err)
				return
			}
			redirect(res, done, location)
			return
		}
	}

	res.SetHeader("Content-Type", "text/html; charset=utf-8")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write([]byte("<html><body><p>You have been signed out.</p></body></html>"))
	res.End()
}
