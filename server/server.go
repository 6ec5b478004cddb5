// Package server is a development stand-in for the remote authentication API. It
// issues short-lived signed access tokens and rotating refresh tokens.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-lifecycle/auth"
	"github.com/jrsteele09/go-session-lifecycle/internal/config"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/token"
	"github.com/jrsteele09/go-session-lifecycle/token/refresh"
	"github.com/rs/zerolog"
)

// Config is the configuration the server reads.
type Config interface {
	config.EnvConfig
	config.APIConfig
	config.MockAPIConfig
}

// Server is the mock remote authentication API.
type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    Config
	repos     auth.Repos
	tokens    *auth.TokenService
	signer    token.Signer
	issuerURL string
	logger    zerolog.Logger
}

type Option func(*Server)

// WithIssuerURL fixes the issuer advertised by discovery. By default it is derived
// from each request's scheme and host.
func WithIssuerURL(url string) Option {
	return func(s *Server) {
		s.issuerURL = strings.TrimSuffix(url, "/")
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New builds the server, seeds one user per role and registers the routes.
func New(cfg Config, repos auth.Repos, refreshRepo refresh.Repo, opts ...Option) (*Server, error) {
	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		repos:  repos,
		logger: logging.Component("mock-api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	signer, err := token.NewSigner(cfg)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create signer: %w", err)
	}
	s.signer = signer

	issuer := token.NewIssuer(
		signer,
		token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()),
		token.WithIssuer(s.issuerURL),
		token.WithAudience(cfg.GetClientID()),
	)
	tokens, err := auth.NewTokenService(repos, issuer, refresh.NewManager(refreshRepo, cfg.GetRefreshTokenExpiry()))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create token service: %w", err)
	}
	s.tokens = tokens

	if err := s.InitialiseSystem(cfg); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// RegisterRouteHandler registers handler and remembers the pattern for the DEV route log.
func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Info().Msgf("[%s%s%s] %s", color, paddedMethod, ResetColor, path)
}

// issuer returns the configured issuer or the one the request was addressed to.
func (s *Server) issuer(r *http.Request) string {
	if s.issuerURL != "" {
		return s.issuerURL
	}
	return getScheme(r) + "://" + r.Host
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
