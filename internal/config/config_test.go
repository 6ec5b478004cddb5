package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-lifecycle/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("WARNING_THRESHOLD", "")
	t.Setenv("TICK_INTERVAL", "")
	t.Setenv("PORT", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("TOKEN_URL", "")

	c := config.New()
	require.Equal(t, 60*time.Second, c.GetWarningThreshold())
	require.Equal(t, time.Second, c.GetTickInterval())
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "http://localhost:8080/oauth2/token", c.GetTokenURL())
	require.Equal(t, "session", c.GetSessionKey())
}

func TestDurationOverrides(t *testing.T) {
	t.Setenv("WARNING_THRESHOLD", "90s")
	t.Setenv("REFRESH_TIMEOUT", "not-a-duration")
	t.Setenv("TICK_INTERVAL", "-1s")

	c := config.New()
	require.Equal(t, 90*time.Second, c.GetWarningThreshold())
	require.Equal(t, 10*time.Second, c.GetRefreshTimeout())
	require.Equal(t, time.Second, c.GetTickInterval())
}

func TestPortAndBaseURL(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("TOKEN_URL", "")

	c := config.New()
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://api.example.com", c.GetAPIBaseURL())
	require.Equal(t, "https://api.example.com/oauth2/token", c.GetTokenURL())
}

func TestMockAPIDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRY", "")
	t.Setenv("SEED_PASSWORD", "")
	t.Setenv("SIGNING_ALG", "")
	t.Setenv("SIGNING_KEY_FILE", "")

	c := config.New()
	require.Equal(t, "HS256", c.GetSigningAlgorithm())
	require.Empty(t, c.GetSigningKeyFile())
	require.Equal(t, 5*time.Minute, c.GetAccessTokenExpiry())
	require.Equal(t, 7*24*time.Hour, c.GetRefreshTokenExpiry())
	require.Equal(t, "password", c.GetSeedPassword())
}
