package engine

import (
	"net/http"
	"sort"
	"strings"

	"oidcgate/internal/oidc/bridge"
)

type discoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// handleDiscovery serves the OpenID Provider metadata document.
func (e *Engine) handleDiscovery(res *bridge.ResponseWriter) {
	issuer := strings.TrimSuffix(e.cfg.Issuer, "/")

	scopes := e.scopeClaims.Names()
	sort.Strings(scopes)
	claims := e.scopeClaims.AllClaims()
	sort.Strings(claims)

	doc := discoveryDocument{
		Issuer:                           issuer,
		AuthorizationEndpoint:            issuer + "/oidc/auth",
		TokenEndpoint:                    issuer + "/oidc/token",
		UserinfoEndpoint:                 issuer + "/oidc/me",
		JWKSURI:                          issuer + "/oidc/jwks.json",
		EndSessionEndpoint:               issuer + "/oidc/session/end",
		ScopesSupported:                  scopes,
		ClaimsSupported:                  claims,
		ResponseTypesSupported:           []string{"code"},
		GrantTypesSupported:              []string{"authorization_code"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"HS256"},
		TokenEndpointAuthMethodsSupported: []string{
			"none", "client_secret_basic", "client_secret_post",
		},
	}
	writeJSON(res, http.StatusOK, doc)
}

// handleJWKS serves the key set document. Tokens are signed with a symmetric
// key, which must never be published, so the set is empty; relying parties
// verify through the userinfo and introspection surfaces instead.
func (e *Engine) handleJWKS(res *bridge.ResponseWriter) {
	writeJSON(res, http.StatusOK, map[string]any{"keys": []any{}})
}
