package config

import "time"

type Config interface {
	EnvConfig
	SessionConfig
	APIConfig
	StorageConfig
	MockAPIConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetPort() string
}

// SessionConfig holds the client-side session lifecycle settings.
type SessionConfig interface {
	GetSessionKey() string
	GetWarningThreshold() time.Duration
	GetTickInterval() time.Duration
	GetRefreshTimeout() time.Duration
}

// APIConfig describes how to reach the remote authentication API.
type APIConfig interface {
	GetAPIBaseURL() string
	GetTokenURL() string
	GetOIDCIssuer() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
}

type StorageConfig interface {
	GetStorageBackend() string
	GetDataFolder() string
	GetStoragePollInterval() time.Duration
}

// MockAPIConfig configures the development authentication API.
type MockAPIConfig interface {
	GetSigningAlgorithm() string
	GetSigningSecret() string
	GetSigningKeyFile() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetSeedPassword() string
}

type mainConfig struct {
	EnvVars
	Session
	API
	Storage
	MockAPI
}

// New returns the environment backed configuration.
func New() Config {
	return mainConfig{}
}
