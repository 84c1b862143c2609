package core

import "hostelcore/internal/infra/persistence/sqlite"

// NewSQLiteStore constructs a SQLite-backed store at path (empty for the
// default file) using the provided rules engine.
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}

// SQLiteStore is the snapshotting sqlite backend.
type SQLiteStore = sqlite.Store
