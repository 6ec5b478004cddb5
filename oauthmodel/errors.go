package oauthmodel

// OAuth2 error codes returned by the token endpoint.
const (
	ErrorInvalidRequest       = "invalid_request"
	ErrorInvalidClient        = "invalid_client"
	ErrorInvalidGrant         = "invalid_grant"
	ErrorUnsupportedGrantType = "unsupported_grant_type"
	ErrorUnauthorizedClient   = "unauthorized_client"
	ErrorServerError          = "server_error"
)
