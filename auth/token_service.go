// Package auth implements the token endpoint of the development authentication API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-lifecycle/clients"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/oauthmodel"
	"github.com/jrsteele09/go-session-lifecycle/token"
	"github.com/jrsteele09/go-session-lifecycle/token/refresh"
	"github.com/jrsteele09/go-session-lifecycle/users"
)

const tokenTypeBearer = "Bearer"

// Repos holds all repository dependencies for the TokenService
type Repos struct {
	Users   users.UserRepo // Repository for user data
	Clients clients.Repo   // Repository for OAuth2 client data
}

// TokenService answers password and refresh_token grants.
type TokenService struct {
	repos   Repos
	issuer  *token.Issuer
	refresh *refresh.Manager
}

// NewTokenService initializes a TokenService with its required dependencies.
func NewTokenService(repos Repos, issuer *token.Issuer, refreshManager *refresh.Manager) (*TokenService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewTokenService] Users repo is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[NewTokenService] Clients repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewTokenService] issuer is required")
	}
	if refreshManager == nil {
		return nil, errors.New("[NewTokenService] refresh manager is required")
	}
	return &TokenService{
		repos:   repos,
		issuer:  issuer,
		refresh: refreshManager,
	}, nil
}

// Token handles the OAuth 2.0 token request.
func (ts *TokenService) Token(req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	client, err := ts.repos.Clients.Get(req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("[TokenService.Token] client %q: %w", req.ClientID, ErrInvalidClient)
	}
	if !client.Authenticate(req.ClientSecret) {
		return nil, fmt.Errorf("[TokenService.Token] client secret incorrect: %w", ErrInvalidClient)
	}
	if req.GrantType != oauthmodel.PasswordGrant && req.GrantType != oauthmodel.RefreshTokenGrant {
		return nil, fmt.Errorf("[TokenService.Token] %q: %w", req.GrantType, ErrUnsupportedGrant)
	}
	if !client.AllowsGrant(req.GrantType) {
		return nil, fmt.Errorf("[TokenService.Token] %q: %w", req.GrantType, ErrUnauthorizedGrant)
	}

	switch req.GrantType {
	case oauthmodel.PasswordGrant:
		return ts.passwordGrant(req.Username, req.Password)
	default:
		return ts.refreshGrant(req.RefreshToken)
	}
}

// Revoke invalidates a refresh token. Unknown tokens are ignored.
func (ts *TokenService) Revoke(refreshToken string) error {
	if err := ts.refresh.Delete(refreshToken); err != nil && !errors.Is(err, autherrors.ErrNotFound) {
		return fmt.Errorf("[TokenService.Revoke] %w", err)
	}
	return nil
}

func (ts *TokenService) passwordGrant(username, password string) (*oauthmodel.TokenResponse, error) {
	user, err := ts.repos.Users.GetByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("[TokenService.passwordGrant] %w", autherrors.ErrInvalidCredentials)
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, fmt.Errorf("[TokenService.passwordGrant] %w", autherrors.ErrInvalidCredentials)
	}

	refreshToken, err := ts.refresh.Create(user.ID)
	if err != nil {
		return nil, fmt.Errorf("[TokenService.passwordGrant] %w", err)
	}
	return ts.response(user, refreshToken)
}

func (ts *TokenService) refreshGrant(refreshToken string) (*oauthmodel.TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("[TokenService.refreshGrant] missing token: %w", autherrors.ErrInvalidRefreshToken)
	}
	userID, next, err := ts.refresh.Rotate(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("[TokenService.refreshGrant] %w", err)
	}
	user, err := ts.repos.Users.GetByID(userID)
	if err != nil {
		_ = ts.refresh.Delete(next)
		return nil, fmt.Errorf("[TokenService.refreshGrant] user %s: %w", userID, autherrors.ErrInvalidRefreshToken)
	}
	return ts.response(user, next)
}

func (ts *TokenService) response(user *users.User, refreshToken string) (*oauthmodel.TokenResponse, error) {
	accessToken, _, err := ts.issuer.CreateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("[TokenService.response] %w", err)
	}
	return &oauthmodel.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(ts.issuer.AccessTokenExpiry() / time.Second),
		RefreshToken: refreshToken,
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         string(user.Role),
	}, nil
}
