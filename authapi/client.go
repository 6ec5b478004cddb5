// Package authapi talks to the remote authentication API: the password grant for
// login and the refresh_token grant for extending a session.
package authapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-session-lifecycle/internal/config"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Token response fields carrying the user identity alongside the tokens.
const (
	ExtraID       = "id"
	ExtraUsername = "username"
	ExtraEmail    = "email"
	ExtraRole     = "role"
)

// Credentials are exchanged for a session at login.
type Credentials struct {
	Username string
	Password string
}

// Client is the network collaborator used by the session lifecycle.
type Client interface {
	Login(ctx context.Context, creds Credentials) (*session.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error)
}

// HTTPClient implements Client with OAuth2 grants.
type HTTPClient struct {
	conf       *oauth2.Config
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Client = (*HTTPClient)(nil)

type Option func(*HTTPClient)

// WithHTTPClient sets the client used for the grants and discovery.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.httpClient = c
	}
}

// WithScopes sets the scopes requested with the password and refresh grants.
func WithScopes(scopes ...string) Option {
	return func(h *HTTPClient) {
		h.conf.Scopes = scopes
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(h *HTTPClient) {
		h.logger = logger
	}
}

// New creates a client for the given OAuth2 endpoint.
func New(clientID, clientSecret string, endpoint oauth2.Endpoint, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
		},
		httpClient: http.DefaultClient,
		logger:     logging.Component("authapi"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewFromConfig builds a client for the configured API. When an OIDC issuer is
// configured the token endpoint is discovered from it.
func NewFromConfig(ctx context.Context, cfg config.APIConfig, opts ...Option) (*HTTPClient, error) {
	if scopes := cfg.GetScopes(); len(scopes) > 0 {
		opts = append([]Option{WithScopes(scopes...)}, opts...)
	}
	h := New(cfg.GetClientID(), cfg.GetClientSecret(), oauth2.Endpoint{
		TokenURL:  cfg.GetTokenURL(),
		AuthStyle: oauth2.AuthStyleInParams,
	}, opts...)

	if issuer := cfg.GetOIDCIssuer(); issuer != "" {
		endpoint, err := Discover(ctx, issuer, h.httpClient)
		if err != nil {
			return nil, err
		}
		h.conf.Endpoint = endpoint
	}
	return h, nil
}

// Discover resolves the OAuth2 endpoints from the issuer's discovery document.
func Discover(ctx context.Context, issuer string, httpClient *http.Client) (oauth2.Endpoint, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return provider.Endpoint(), nil
}

// TokenURL is the endpoint the grants are posted to.
func (h *HTTPClient) TokenURL() string {
	return h.conf.Endpoint.TokenURL
}

// Login runs the password grant. Rejected credentials wrap ErrInvalidCredentials.
func (h *HTTPClient) Login(ctx context.Context, creds Credentials) (*session.LoginResponse, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("missing username or password: %w", autherrors.ErrInvalidCredentials)
	}

	tok, err := h.conf.PasswordCredentialsToken(h.clientContext(ctx), creds.Username, creds.Password)
	if err != nil {
		h.logger.Debug().Err(err).Str("user", creds.Username).Msg("password grant failed")
		return nil, loginError(err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response without access token: %w", autherrors.ErrLoginFailed)
	}

	return &session.LoginResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ID:           extraString(tok, ExtraID),
		Username:     extraString(tok, ExtraUsername),
		Email:        extraString(tok, ExtraEmail),
		Role:         extraString(tok, ExtraRole),
	}, nil
}

// Refresh runs the refresh_token grant.
func (h *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("missing refresh token: %w", autherrors.ErrRefreshFailed)
	}

	// A token with no access token is never valid, so the source always refreshes.
	src := h.conf.TokenSource(h.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", autherrors.ErrRefreshFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response without access token: %w", autherrors.ErrRefreshFailed)
	}
	return &session.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}, nil
}

func (h *HTTPClient) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, h.httpClient)
}

func loginError(err error) error {
	var re *oauth2.RetrieveError
	if autherrors.As(err, &re) && re.ErrorCode == "invalid_grant" {
		return fmt.Errorf("%w: %w", autherrors.ErrLoginFailed, autherrors.ErrInvalidCredentials)
	}
	return fmt.Errorf("%w: %v", autherrors.ErrLoginFailed, err)
}

func extraString(tok *oauth2.Token, key string) string {
	v, _ := tok.Extra(key).(string)
	return v
}
