package core

import (
	"context"
	"fmt"
	"os"

	"hostelcore/internal/infra/persistence/memory"
	"hostelcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
	MemoryStore     = memory.Store
)

// NewMemoryStore constructs an in-memory store.
func NewMemoryStore(engine *RulesEngine) *MemoryStore {
	return memory.NewStore(engine)
}

// StorageConfig selects and parameterises a storage backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// StorageConfigFromEnv reads the storage selection from the environment.
//
//	HOSTELCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	HOSTELCORE_SQLITE_PATH: path to sqlite file (default ./hostelcore.db)
//	HOSTELCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Driver:      StorageDriver(os.Getenv("HOSTELCORE_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("HOSTELCORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("HOSTELCORE_POSTGRES_DSN"),
	}
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
func OpenPersistentStore(ctx context.Context, engine *RulesEngine) (PersistentStore, error) {
	return OpenStorage(ctx, StorageConfigFromEnv(), engine)
}

// OpenStorage opens the backend described by cfg. An empty driver means sqlite.
func OpenStorage(ctx context.Context, cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return NewMemoryStore(engine), nil
	case StorageSQLite:
		return NewSQLiteStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		return NewPostgresStore(ctx, cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
