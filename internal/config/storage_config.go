package config

import "time"

const (
	StorageBackendMemory = "memory"
	StorageBackendFile   = "file"
	StorageBackendSQLite = "sqlite"
)

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() string {
	return GetEnv("STORAGE_BACKEND", StorageBackendFile)
}

func (Storage) GetDataFolder() string {
	return GetEnv("FOLDER", "./data")
}

// GetStoragePollInterval is how often the sqlite backend checks for commits by other connections.
func (Storage) GetStoragePollInterval() time.Duration {
	return GetDurationEnv("STORAGE_POLL_INTERVAL", 250*time.Millisecond)
}
