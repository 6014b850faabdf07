package models

import (
	"time"

	dErrors "oidcgate/pkg/domain-errors"
)

// Prompt names the kind of user interaction an authorization flow is paused
// on. The set is ordered by the interaction policy, conventionally login
// before consent.
type Prompt string

const (
	PromptLogin   Prompt = "login"
	PromptConsent Prompt = "consent"
)

// AuthorizationParams are the original query parameters of the paused
// authorization request, carried verbatim through the interaction.
type AuthorizationParams struct {
	ClientID     string `json:"client_id"`
	RedirectURI  string `json:"redirect_uri"`
	ResponseType string `json:"response_type"`
	Scope        string `json:"scope"`
	State        string `json:"state,omitempty"`
	Nonce        string `json:"nonce,omitempty"`
}

// PromptDetail is a tagged union keyed by the pending prompt. Exactly one of
// Login/Consent is set, matching the prompt kind.
type PromptDetail struct {
	Name    Prompt         `json:"name"`
	Login   *LoginDetail   `json:"login,omitempty"`
	Consent *ConsentDetail `json:"consent,omitempty"`
}

// LoginDetail carries hints for the login prompt.
type LoginDetail struct {
	// AccountHint is set when a previous partial resolution already named
	// the account, e.g. a remembered session that still needs re-auth.
	AccountHint string `json:"account_hint,omitempty"`
}

// ConsentDetail describes what the session still needs the user to approve.
type ConsentDetail struct {
	MissingOIDCScope      []string            `json:"missing_oidc_scope,omitempty"`
	MissingOIDCClaims     []string            `json:"missing_oidc_claims,omitempty"`
	MissingResourceScopes map[string][]string `json:"missing_resource_scopes,omitempty"`
}

// InteractionSession is the ephemeral state of an authorization flow paused
// for user input, keyed by an opaque uid.
type InteractionSession struct {
	UID       string              `json:"uid"`
	Prompt    PromptDetail        `json:"prompt"`
	Params    AuthorizationParams `json:"params"`
	GrantID   string              `json:"grant_id,omitempty"`
	AccountID string              `json:"account_id,omitempty"`
	Result    *InteractionResult  `json:"result,omitempty"`
	// Resolved is set once an authoritative result has been submitted; a
	// second submission for the same uid is rejected.
	Resolved  bool      `json:"resolved,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its TTL.
func (s *InteractionSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// LoginResult asserts the end user's identity.
type LoginResult struct {
	AccountID string `json:"accountId"`
	Remember  bool   `json:"remember"`
}

// ConsentResult asserts the user's authorization via a saved grant.
type ConsentResult struct {
	GrantID string `json:"grantId"`
}

// InteractionResult is the decision submitted back for a paused interaction:
// a login assertion, a consent assertion, or a denial. Consumed once per
// session.
type InteractionResult struct {
	Login            *LoginResult   `json:"login,omitempty"`
	Consent          *ConsentResult `json:"consent,omitempty"`
	Error            string         `json:"error,omitempty"`
	ErrorDescription string         `json:"error_description,omitempty"`
}

// Denied reports whether the result is a denial.
func (r *InteractionResult) Denied() bool {
	return r != nil && r.Error != ""
}

// Validate rejects results that assert nothing.
func (r *InteractionResult) Validate() error {
	if r == nil || (r.Login == nil && r.Consent == nil && r.Error == "") {
		return dErrors.New(dErrors.CodeBadRequest, "interaction result must carry a login, consent or error member")
	}
	if r.Login != nil && r.Login.AccountID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "login result requires an accountId")
	}
	if r.Consent != nil && r.Consent.GrantID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "consent result requires a grantId")
	}
	return nil
}

// Merge folds a newer partial result into r, keeping earlier members that the
// newer submission does not replace. Used when login and consent resolve as
// two separate steps.
func (r *InteractionResult) Merge(other *InteractionResult) *InteractionResult {
	if r == nil {
		return other
	}
	if other == nil {
		return r
	}
	merged := *r
	if other.Login != nil {
		merged.Login = other.Login
	}
	if other.Consent != nil {
		merged.Consent = other.Consent
	}
	if other.Error != "" {
		merged.Error = other.Error
		merged.ErrorDescription = other.ErrorDescription
	}
	return &merged
}
