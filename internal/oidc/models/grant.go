package models

import (
	"strings"
	"time"

	pstrings "oidcgate/pkg/platform/strings"
)

// Grant is the durable per user x client record of authorized scopes, claims
// and resource-indicator scopes. Mutations are idempotent unions; nothing is
// persisted until the owning store's Save is called.
type Grant struct {
	ID        string              `json:"id"`
	AccountID string              `json:"account_id"`
	ClientID  string              `json:"client_id"`
	// OIDCScope holds granted scope tokens in request order.
	OIDCScope  []string            `json:"oidc_scope"`
	OIDCClaims []string            `json:"oidc_claims"`
	// Resources maps a resource indicator to its granted scope tokens.
	Resources map[string][]string `json:"resources,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	// ExpiresAt is zero for grants without a configured TTL.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// NewGrant constructs a fresh, unsaved grant bound to an account and client.
func NewGrant(accountID, clientID string) *Grant {
	return &Grant{
		AccountID: accountID,
		ClientID:  clientID,
	}
}

// AddOIDCScope unions the space-separated scope string into the grant.
// Repeated identical additions are no-ops.
func (g *Grant) AddOIDCScope(scope string) {
	g.OIDCScope = pstrings.MergeFields(g.OIDCScope, scope)
}

// AddOIDCClaims unions the claim names into the grant.
func (g *Grant) AddOIDCClaims(claims []string) {
	g.OIDCClaims = pstrings.DedupeAndTrim(append(g.OIDCClaims, claims...))
}

// AddResourceScope unions a space-separated scope string under a resource
// indicator.
func (g *Grant) AddResourceScope(indicator, scope string) {
	if g.Resources == nil {
		g.Resources = make(map[string][]string)
	}
	g.Resources[indicator] = pstrings.MergeFields(g.Resources[indicator], scope)
}

// ScopeString renders the granted OIDC scopes as one space-separated string.
func (g *Grant) ScopeString() string {
	return strings.Join(g.OIDCScope, " ")
}

// HasScopes reports whether every requested scope is already granted.
func (g *Grant) HasScopes(requested []string) bool {
	granted := make(map[string]struct{}, len(g.OIDCScope))
	for _, s := range g.OIDCScope {
		granted[s] = struct{}{}
	}
	for _, r := range requested {
		if _, ok := granted[r]; !ok {
			return false
		}
	}
	return true
}

// MissingScopes returns the requested scopes not yet granted, in request
// order.
func (g *Grant) MissingScopes(requested []string) []string {
	granted := make(map[string]struct{}, len(g.OIDCScope))
	for _, s := range g.OIDCScope {
		granted[s] = struct{}{}
	}
	var missing []string
	for _, r := range requested {
		if _, ok := granted[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// MissingClaims returns the claims not yet granted, in request order.
func (g *Grant) MissingClaims(requested []string) []string {
	granted := make(map[string]struct{}, len(g.OIDCClaims))
	for _, c := range g.OIDCClaims {
		granted[c] = struct{}{}
	}
	var missing []string
	for _, r := range requested {
		if _, ok := granted[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// Expired reports whether the grant carries a TTL and is past it.
func (g *Grant) Expired(now time.Time) bool {
	return !g.ExpiresAt.IsZero() && now.After(g.ExpiresAt)
}
