package models

// ScopeClaims maps each enabled scope to the claims it discloses. The map is
// static configuration handed to the provider factory.
type ScopeClaims map[string][]string

// DefaultScopeClaims returns the standard OIDC scope set plus the
// offline_access marker scope (no claims of its own).
func DefaultScopeClaims() ScopeClaims {
	return ScopeClaims{
		"openid":         {"sub"},
		"profile":        {"name", "preferred_username", "updated_at"},
		"email":          {"email", "email_verified"},
		"offline_access": {},
	}
}

// Enabled reports whether the scope is configured at all.
func (sc ScopeClaims) Enabled(scope string) bool {
	_, ok := sc[scope]
	return ok
}

// ClaimsFor returns the union of claims disclosed by the given scopes,
// preserving scope order.
func (sc ScopeClaims) ClaimsFor(scopes []string) []string {
	seen := make(map[string]struct{})
	var claims []string
	for _, scope := range scopes {
		for _, claim := range sc[scope] {
			if _, ok := seen[claim]; ok {
				continue
			}
			seen[claim] = struct{}{}
			claims = append(claims, claim)
		}
	}
	return claims
}

// Names returns every configured scope name. Order is unspecified.
func (sc ScopeClaims) Names() []string {
	names := make([]string, 0, len(sc))
	for name := range sc {
		names = append(names, name)
	}
	return names
}

// AllClaims returns every claim disclosed by any configured scope.
func (sc ScopeClaims) AllClaims() []string {
	return sc.ClaimsFor(sc.Names())
}
