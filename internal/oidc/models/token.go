package models

import "time"

// AccessToken is a short-lived bearer credential. The signed value doubles as
// the lookup key: validation is find-by-value, so absence means invalid,
// expired or consumed.
type AccessToken struct {
	// Value is the signed compact JWT handed to the client.
	Value     string    `json:"value"`
	JTI       string    `json:"jti"`
	AccountID string    `json:"account_id"`
	ClientID  string    `json:"client_id"`
	GrantID   string    `json:"grant_id,omitempty"`
	Scope     string    `json:"scope"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its TTL.
func (t *AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPayload is the normalized result of a successful token validation:
// what downstream request-context construction needs to build a principal.
type TokenPayload struct {
	Sub       string    `json:"sub"`
	ClientID  string    `json:"client_id"`
	Scope     string    `json:"scope"`
	JTI       string    `json:"jti"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
