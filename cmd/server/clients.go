package main

import "oidcgate/internal/oidc/models"

// devClients is the built-in registry used when OIDC_CLIENTS_FILE is unset.
// A single public client pointed at localhost keeps local flows runnable out
// of the box; production deployments always configure a registry file.
func devClients() []models.Client {
	return []models.Client{
		{
			ID:              "dev-client",
			Name:            "Development Client",
			ApplicationType: models.ApplicationTypeWeb,
			GrantTypes:      []string{"authorization_code"},
			ResponseTypes:   []string{"code"},
			RedirectURIs: []string{
				"http://localhost:3000/callback",
			},
			TokenEndpointAuthMethod: models.AuthMethodNone,
			Scopes:                  []string{"openid", "profile", "email", "offline_access"},
		},
	}
}
