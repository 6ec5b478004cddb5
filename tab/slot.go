package tab

import (
	"fmt"
	"path/filepath"

	"github.com/jrsteele09/go-session-lifecycle/internal/config"
	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/jrsteele09/go-session-lifecycle/storage/filestore"
	"github.com/jrsteele09/go-session-lifecycle/storage/memstore"
	"github.com/jrsteele09/go-session-lifecycle/storage/sqlitestore"
)

const sqliteFile = "sessions.db"

// OpenSlot opens the configured durable storage backend. The memory backend is
// private to the process, so only tabs of the same process share it.
func OpenSlot(cfg config.StorageConfig) (storage.Slot, error) {
	switch backend := cfg.GetStorageBackend(); backend {
	case config.StorageBackendMemory:
		return memstore.NewProfile().Open(), nil
	case config.StorageBackendFile:
		return filestore.Open(cfg.GetDataFolder())
	case config.StorageBackendSQLite:
		return sqlitestore.Open(filepath.Join(cfg.GetDataFolder(), sqliteFile),
			sqlitestore.WithPollInterval(cfg.GetStoragePollInterval()))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
