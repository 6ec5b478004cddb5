package oauthmodel

// TokenResponse is the JSON body returned by the /oauth2/token endpoint.
// Besides the RFC 6749 fields it carries the identity of the authenticated user so
// the client can build its session without a second call.
type TokenResponse struct {
	// AccessToken is the signed JWT. Its "exp" claim is authoritative for expiry.
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token. It is a hint only.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is an opaque single-use token; it rotates on each use.
	RefreshToken string `json:"refresh_token,omitempty"`

	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// ErrorResponse is the RFC 6749 error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
