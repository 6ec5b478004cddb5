package config

import "time"

type MockAPI struct{}

var _ MockAPIConfig = MockAPI{}

// GetSigningAlgorithm is HS256 or RS256.
func (MockAPI) GetSigningAlgorithm() string {
	return GetEnv("SIGNING_ALG", "HS256")
}

// GetSigningKeyFile is a PEM encoded RSA key for RS256. Empty generates a key at startup.
func (MockAPI) GetSigningKeyFile() string {
	return GetEnv("SIGNING_KEY_FILE", "")
}

func (MockAPI) GetSigningSecret() string {
	return GetEnv("SIGNING_SECRET", "dev-signing-secret")
}

// GetAccessTokenExpiry is short by default so the expiry warning is quick to reach.
func (MockAPI) GetAccessTokenExpiry() time.Duration {
	return GetDurationEnv("ACCESS_TOKEN_EXPIRY", 5*time.Minute)
}

func (MockAPI) GetRefreshTokenExpiry() time.Duration {
	return GetDurationEnv("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}

// GetSeedPassword is the password given to the seeded user of each role.
func (MockAPI) GetSeedPassword() string {
	return GetEnv("SEED_PASSWORD", "password")
}
