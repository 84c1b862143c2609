package core

import (
	"context"

	"hostelcore/internal/infra/persistence/postgres"
)

// NewPostgresStore constructs a Postgres-backed store from the provided DSN.
func NewPostgresStore(ctx context.Context, dsn string, engine *RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(ctx, dsn, engine)
}

// PostgresStore is the snapshotting postgres backend.
type PostgresStore = postgres.Store
