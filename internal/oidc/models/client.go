package models

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	dErrors "oidcgate/pkg/domain-errors"
)

// TokenEndpointAuthMethod enumerates how a client authenticates at the token
// endpoint.
type TokenEndpointAuthMethod string

const (
	AuthMethodNone              TokenEndpointAuthMethod = "none"
	AuthMethodClientSecretBasic TokenEndpointAuthMethod = "client_secret_basic"
	AuthMethodClientSecretPost  TokenEndpointAuthMethod = "client_secret_post"
)

// ApplicationType enumerates the registered application kind.
type ApplicationType string

const (
	ApplicationTypeWeb    ApplicationType = "web"
	ApplicationTypeNative ApplicationType = "native"
)

// Client is a registered relying party. Clients are configured, not
// user-created; the registry is immutable after load.
type Client struct {
	ID                      string                  `json:"client_id"`
	Name                    string                  `json:"client_name"`
	ApplicationType         ApplicationType         `json:"application_type"`
	GrantTypes              []string                `json:"grant_types"`
	ResponseTypes           []string                `json:"response_types"`
	RedirectURIs            []string                `json:"redirect_uris"`
	PostLogoutRedirectURIs  []string                `json:"post_logout_redirect_uris"`
	TokenEndpointAuthMethod TokenEndpointAuthMethod `json:"token_endpoint_auth_method"`
	// SecretHash is a bcrypt hash of the client secret. Empty for public
	// clients (auth method "none").
	SecretHash string   `json:"secret_hash,omitempty"`
	Scopes     []string `json:"scopes"`
}

// RedirectURIAllowed reports whether uri is on the exact-match allow-list.
func (c *Client) RedirectURIAllowed(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if subtle.ConstantTimeCompare([]byte(allowed), []byte(uri)) == 1 {
			return true
		}
	}
	return false
}

// PostLogoutRedirectURIAllowed reports whether uri may terminate an
// end-session redirect.
func (c *Client) PostLogoutRedirectURIAllowed(uri string) bool {
	for _, allowed := range c.PostLogoutRedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}

// GrantTypeAllowed reports whether the client may use the given grant type.
func (c *Client) GrantTypeAllowed(grantType string) bool {
	for _, gt := range c.GrantTypes {
		if gt == grantType {
			return true
		}
	}
	return false
}

// ResponseTypeAllowed reports whether the client may request the given
// response type at the authorization endpoint.
func (c *Client) ResponseTypeAllowed(responseType string) bool {
	for _, rt := range c.ResponseTypes {
		if rt == responseType {
			return true
		}
	}
	return false
}

// ScopeAllowed reports whether every requested scope is registered for the
// client. An empty client scope list allows everything the provider enables.
func (c *Client) ScopeAllowed(requested []string) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	allowed := make(map[string]struct{}, len(c.Scopes))
	for _, s := range c.Scopes {
		allowed[s] = struct{}{}
	}
	for _, r := range requested {
		if _, ok := allowed[r]; !ok {
			return false
		}
	}
	return true
}

// Authenticate verifies the presented secret against the stored bcrypt hash.
// Public clients (auth method "none") must present no secret.
func (c *Client) Authenticate(secret string) error {
	if c.TokenEndpointAuthMethod == AuthMethodNone {
		if secret != "" {
			return dErrors.New(dErrors.CodeUnauthorized, "public client must not send a secret")
		}
		return nil
	}
	if c.SecretHash == "" || secret == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "client authentication failed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "client authentication failed")
	}
	return nil
}

// Metadata is the public subset of client attributes exposed to the consent
// UI and service callers.
type Metadata struct {
	ID              string
	Name            string
	ApplicationType ApplicationType
	RedirectURIs    []string
}

// Metadata returns the client's disclosable attributes.
func (c *Client) Metadata() Metadata {
	return Metadata{
		ID:              c.ID,
		Name:            c.Name,
		ApplicationType: c.ApplicationType,
		RedirectURIs:    append([]string(nil), c.RedirectURIs...),
	}
}
