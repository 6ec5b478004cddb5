package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-session-lifecycle/auth"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/oauthmodel"
	"github.com/jrsteele09/go-session-lifecycle/token"
)

const contentTypeJSON = "application/json; charset=utf-8"

// WellKnownOpenIDConfig serves the OIDC discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.issuer(r)

		resp := map[string]any{
			"issuer":              baseURL,
			"token_endpoint":      baseURL + RouteOAuth2Token,
			"revocation_endpoint": baseURL + RouteOAuth2Revoke,

			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{s.signer.GetSigningMethod().Alg()},
			"token_endpoint_auth_methods_supported": []string{
				"client_secret_post",  // Credentials in POST body
				"client_secret_basic", // Credentials in Authorization header
				"none",                // Public clients
			},
			"grant_types_supported": []string{
				string(oauthmodel.PasswordGrant),
				string(oauthmodel.RefreshTokenGrant),
			},
			"claims_supported": []string{"sub", "role", "username", "exp", "iat", "jti"},
		}

		if _, ok := s.signer.(token.KeySetProvider); ok {
			resp["jwks_uri"] = baseURL + RouteWellKnownJWKS
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// JWKS publishes the public keys that verify issued access tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := s.signer.(token.KeySetProvider)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(provider.JWKS())
	}
}

// Token exchanges credentials or a refresh token for a token pair
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrorInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		clientID, clientSecret := clientCredentials(r)
		tokenReq := oauthmodel.TokenRequest{
			GrantType:    oauthmodel.GrantType(r.PostFormValue("grant_type")),
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Username:     r.PostFormValue("username"),
			Password:     r.PostFormValue("password"),
			RefreshToken: r.PostFormValue("refresh_token"),
		}

		tokenResponse, err := s.tokens.Token(tokenReq)
		if err != nil {
			code, status := tokenErrorCode(err)
			s.logger.Info().Err(err).Str("grant_type", string(tokenReq.GrantType)).Msg("token request rejected")
			writeJSONError(w, code, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(tokenResponse)
	}
}

// Revoke invalidates a refresh token (RFC 7009). Unknown tokens still get 200.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrorInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}
		tok := r.PostFormValue("token")
		if tok == "" {
			writeJSONError(w, oauthmodel.ErrorInvalidRequest, "token parameter is required", http.StatusBadRequest)
			return
		}
		if err := s.tokens.Revoke(tok); err != nil {
			writeJSONError(w, oauthmodel.ErrorServerError, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// clientCredentials reads client_secret_basic first and falls back to client_secret_post.
func clientCredentials(r *http.Request) (string, string) {
	if id, secret, ok := r.BasicAuth(); ok {
		if uid, err := url.QueryUnescape(id); err == nil {
			id = uid
		}
		if usecret, err := url.QueryUnescape(secret); err == nil {
			secret = usecret
		}
		return id, secret
	}
	return r.PostFormValue("client_id"), r.PostFormValue("client_secret")
}

func tokenErrorCode(err error) (string, int) {
	switch {
	case errors.Is(err, auth.ErrInvalidClient):
		return oauthmodel.ErrorInvalidClient, http.StatusUnauthorized
	case errors.Is(err, auth.ErrUnsupportedGrant):
		return oauthmodel.ErrorUnsupportedGrantType, http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorizedGrant):
		return oauthmodel.ErrorUnauthorizedClient, http.StatusBadRequest
	case errors.Is(err, autherrors.ErrInvalidCredentials),
		errors.Is(err, autherrors.ErrInvalidRefreshToken),
		errors.Is(err, autherrors.ErrTokenExpired):
		return oauthmodel.ErrorInvalidGrant, http.StatusBadRequest
	default:
		return oauthmodel.ErrorServerError, http.StatusInternalServerError
	}
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(oauthmodel.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
