package config

import "strings"

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the remote API root without a trailing slash.
func (API) GetAPIBaseURL() string {
	return strings.TrimSuffix(GetEnv("API_BASE_URL", "http://localhost:8080"), "/")
}

// GetTokenURL returns the token endpoint. When unset it is derived from the API base URL.
func (a API) GetTokenURL() string {
	return GetEnv("TOKEN_URL", a.GetAPIBaseURL()+"/oauth2/token")
}

// GetOIDCIssuer returns the issuer used for endpoint discovery; empty disables discovery.
func (API) GetOIDCIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (API) GetClientID() string {
	return GetEnv("CLIENT_ID", "management-ui")
}

func (API) GetClientSecret() string {
	return GetEnv("CLIENT_SECRET", "")
}

// GetScopes returns the space separated OAUTH_SCOPES requested with each grant.
func (API) GetScopes() []string {
	return strings.Fields(GetEnv("OAUTH_SCOPES", ""))
}
