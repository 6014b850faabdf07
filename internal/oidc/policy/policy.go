// Package policy builds the ordered prompt chain the engine consults when an
// authorization request arrives. The base chain is login then consent; checks
// decide per flow whether each prompt is actually required.
package policy

import (
	"context"

	"oidcgate/internal/oidc/models"
)

// CheckInput is everything a prompt check may inspect.
type CheckInput struct {
	Params models.AuthorizationParams
	// AccountID is non-empty once a login result has been recorded for the
	// flow (or a remembered session identified the user up front).
	AccountID string
	// Grant is the existing grant for AccountID x client, nil when none.
	Grant *models.Grant
	// RequestedScopes are the parsed scope tokens of the request.
	RequestedScopes []string
	// RequestedClaims are the claims the requested scopes disclose.
	RequestedClaims []string
}

// Check decides whether its prompt is required for the flow. Returning
// required=true pauses the flow on the prompt and attaches detail for the
// interaction UI.
type Check func(ctx context.Context, in CheckInput) (required bool, detail models.PromptDetail)

// PromptPolicy is one named prompt plus its ordered checks. The prompt is
// required if any check says so; the first requiring check's detail wins.
type PromptPolicy struct {
	Name   models.Prompt
	Checks []Check
}

// Policy is the ordered prompt chain. Built once at provider construction;
// immutable afterwards.
type Policy struct {
	prompts []PromptPolicy
}

// New assembles a policy from ordered prompts.
func New(prompts ...PromptPolicy) *Policy {
	return &Policy{prompts: prompts}
}

// Default returns the base chain: login (required until an account is
// identified) then consent (required until the grant covers every requested
// scope and claim).
func Default() *Policy {
	return New(
		PromptPolicy{
			Name:   models.PromptLogin,
			Checks: []Check{noSessionCheck},
		},
		PromptPolicy{
			Name:   models.PromptConsent,
			Checks: []Check{missingConsentCheck},
		},
	)
}

// Get locates a prompt by name so callers can extend its checks before the
// policy is handed to the provider, e.g. to add a session-bypass check to
// the login prompt. Returns nil when the prompt is absent.
func (p *Policy) Get(name models.Prompt) *PromptPolicy {
	for i := range p.prompts {
		if p.prompts[i].Name == name {
			return &p.prompts[i]
		}
	}
	return nil
}

// AddCheck appends a check to the named prompt. No-op for unknown prompts.
func (p *Policy) AddCheck(name models.Prompt, check Check) {
	if prompt := p.Get(name); prompt != nil {
		prompt.Checks = append(prompt.Checks, check)
	}
}

// NextPrompt walks the chain in order and returns the first prompt still
// required, or ok=false when the flow may proceed to code issuance.
func (p *Policy) NextPrompt(ctx context.Context, in CheckInput) (models.PromptDetail, bool) {
	for _, prompt := range p.prompts {
		for _, check := range prompt.Checks {
			if required, detail := check(ctx, in); required {
				if detail.Name == "" {
					detail.Name = prompt.Name
				}
				return detail, true
			}
		}
	}
	return models.PromptDetail{}, false
}

func noSessionCheck(_ context.Context, in CheckInput) (bool, models.PromptDetail) {
	if in.AccountID != "" {
		return false, models.PromptDetail{}
	}
	return true, models.PromptDetail{
		Name:  models.PromptLogin,
		Login: &models.LoginDetail{},
	}
}

func missingConsentCheck(_ context.Context, in CheckInput) (bool, models.PromptDetail) {
	var missingScopes, missingClaims []string
	if in.Grant == nil {
		missingScopes = in.RequestedScopes
		missingClaims = in.RequestedClaims
	} else {
		missingScopes = in.Grant.MissingScopes(in.RequestedScopes)
		missingClaims = in.Grant.MissingClaims(in.RequestedClaims)
	}
	if len(missingScopes) == 0 && len(missingClaims) == 0 {
		return false, models.PromptDetail{}
	}
	return true, models.PromptDetail{
		Name: models.PromptConsent,
		Consent: &models.ConsentDetail{
			MissingOIDCScope:  missingScopes,
			MissingOIDCClaims: missingClaims,
		},
	}
}
