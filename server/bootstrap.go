package server

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-session-lifecycle/clients"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/oauthmodel"
	"github.com/jrsteele09/go-session-lifecycle/users"
)

// SeedUsers are created on start, one per role. Existing users are left alone.
var SeedUsers = []users.User{
	{ID: "user-admin", Username: "admin", Email: "admin@example.com", Role: users.RoleAdmin},
	{ID: "user-supervisor", Username: "supervisor", Email: "supervisor@example.com", Role: users.RoleSupervisor},
	{ID: "user-employee", Username: "employee", Email: "employee@example.com", Role: users.RoleEmployee},
	{ID: "user-analyst", Username: "analyst", Email: "analyst@example.com", Role: users.RoleAnalyst},
}

// InitialiseSystem registers the UI client and the seeded users.
func (s *Server) InitialiseSystem(cfg Config) error {
	if err := s.createUIClient(cfg); err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap client: %w", err)
	}

	for _, seed := range SeedUsers {
		created, err := s.createUser(seed, cfg.GetSeedPassword())
		if err != nil {
			return fmt.Errorf("[Server InitialiseSystem] failed to seed %s: %w", seed.Username, err)
		}
		if created {
			s.logger.Info().Str("username", seed.Username).Str("role", string(seed.Role)).Msg("seeded user")
		}
	}
	return nil
}

func (s *Server) createUIClient(cfg Config) error {
	if _, err := s.repos.Clients.Get(cfg.GetClientID()); err == nil {
		return nil
	} else if !errors.Is(err, autherrors.ErrNotFound) {
		return err
	}

	clientType := clients.ClientTypeConfidential
	if cfg.GetClientSecret() == "" {
		clientType = clients.ClientTypePublic
	}
	return s.repos.Clients.Upsert(&clients.Client{
		ID:          cfg.GetClientID(),
		Type:        clientType,
		Description: "Management UI",
		Secret:      cfg.GetClientSecret(),
		GrantTypes:  []oauthmodel.GrantType{oauthmodel.PasswordGrant, oauthmodel.RefreshTokenGrant},
	})
}

func (s *Server) createUser(seed users.User, password string) (bool, error) {
	if _, err := s.repos.Users.GetByUsername(seed.Username); err == nil {
		return false, nil
	} else if !errors.Is(err, autherrors.ErrNotFound) {
		return false, err
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return false, err
	}
	u := seed
	u.PasswordHash = hash
	if err := s.repos.Users.Upsert(&u); err != nil {
		return false, err
	}
	return true, nil
}
