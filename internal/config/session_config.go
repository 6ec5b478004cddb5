package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionKey() string {
	return GetEnv("SESSION_KEY", "session")
}

// GetWarningThreshold is how long before expiry the countdown prompt appears.
func (Session) GetWarningThreshold() time.Duration {
	return GetDurationEnv("WARNING_THRESHOLD", 60*time.Second)
}

func (Session) GetTickInterval() time.Duration {
	return GetDurationEnv("TICK_INTERVAL", time.Second)
}

func (Session) GetRefreshTimeout() time.Duration {
	return GetDurationEnv("REFRESH_TIMEOUT", 10*time.Second)
}
