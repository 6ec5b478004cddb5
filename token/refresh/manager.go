package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const tokenLength = 32 // 32 bytes = 256 bits

// Manager handles refresh token creation, validation, and rotation.
// Refresh tokens are single use: Rotate consumes the presented token.
type Manager struct {
	repo   Repo
	expiry time.Duration
	mu     sync.Mutex
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, expiry time.Duration) *Manager {
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &Manager{
		repo:   repo,
		expiry: expiry,
	}
}

// Create generates a new refresh token and stores it.
// Any existing refresh token for the user is replaced.
func (m *Manager) Create(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(userID)
}

func (m *Manager) create(userID string) (string, error) {
	if existingToken, err := m.repo.GetByUserID(userID); err == nil && existingToken != nil {
		if err := m.repo.Delete(existingToken.Token); err != nil {
			return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
		}
	}

	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return tokenStr, nil
}

// Rotate validates and consumes a refresh token, returning its owner and a replacement token.
func (m *Manager) Rotate(token string) (userID string, next string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rt, err := m.repo.Get(token)
	if err != nil || rt == nil {
		return "", "", autherrors.ErrInvalidRefreshToken
	}
	if err := m.repo.Delete(token); err != nil {
		return "", "", fmt.Errorf("failed to consume refresh token: %w", err)
	}
	if m.IsExpired(rt) {
		return "", "", autherrors.ErrTokenExpired
	}

	next, err = m.create(rt.UserID)
	if err != nil {
		return "", "", err
	}
	return rt.UserID, next, nil
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// IsExpired checks if a refresh token has expired
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return NowTimeFunc().Sub(rt.Iat) > m.expiry
}
