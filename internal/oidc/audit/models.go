package audit

import "time"

// Actions captured from the OIDC flows.
const (
	ActionLoginResolved  = "login_resolved"
	ActionConsentGranted = "consent_granted"
	ActionConsentDenied  = "consent_denied"
	ActionTokenIssued    = "token_issued"
)

// Event is emitted from the OIDC flows to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	AccountID string    `json:"account_id,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	UID       string    `json:"uid,omitempty"`
	GrantID   string    `json:"grant_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}
