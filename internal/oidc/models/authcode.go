package models

import (
	"fmt"
	"time"

	"oidcgate/pkg/platform/sentinel"
)

// AuthorizationCode is the single-use credential minted when an interaction
// resolves, exchanged at the token endpoint.
type AuthorizationCode struct {
	Code        string    `json:"code"`
	AccountID   string    `json:"account_id"`
	ClientID    string    `json:"client_id"`
	GrantID     string    `json:"grant_id"`
	Scope       string    `json:"scope"`
	RedirectURI string    `json:"redirect_uri"`
	Nonce       string    `json:"nonce,omitempty"`
	Used        bool      `json:"used"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ValidateForConsume checks the code may be exchanged: unexpired, unused and
// bound to the same redirect_uri the authorization request named. Failures
// wrap the matching sentinel so callers branch with errors.Is.
func (c *AuthorizationCode) ValidateForConsume(redirectURI string, now time.Time) error {
	if now.After(c.ExpiresAt) {
		return fmt.Errorf("authorization code expired: %w", sentinel.ErrExpired)
	}
	if c.Used {
		return fmt.Errorf("authorization code already used: %w", sentinel.ErrAlreadyUsed)
	}
	if c.RedirectURI != redirectURI {
		return fmt.Errorf("redirect_uri does not match authorization request: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// MarkUsed flags the code as consumed.
func (c *AuthorizationCode) MarkUsed() {
	c.Used = true
}
