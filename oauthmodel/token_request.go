package oauthmodel

// GrantType is the OAuth 2.0 grant used at the token endpoint.
type GrantType string

const (
	// PasswordGrant exchanges a username and password for tokens.
	// Token request includes: username, password, client_id, client_secret
	PasswordGrant GrantType = "password"

	// RefreshTokenGrant exchanges a refresh token for a new token pair.
	// Token request includes: refresh_token, client_id, client_secret
	// Behavior: the presented refresh token is consumed and a new one issued
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenRequest holds the parameters posted to the /oauth2/token endpoint.
type TokenRequest struct {
	GrantType GrantType

	// ClientID identifies the OAuth2 client making the request.
	// Example: "management-ui"
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Security: Never log or expose this value
	ClientSecret string

	// Username and Password are only used by the password grant.
	Username string
	Password string

	// RefreshToken is only used by the refresh_token grant.
	RefreshToken string
}
