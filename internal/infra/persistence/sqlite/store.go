// Package sqlite persists the in-memory room registry to a single SQLite
// table, snapshotting the full state after every committed transaction.
//
// Each transaction runs under BEGIN IMMEDIATE: the registry is reloaded from
// the database, mutated in memory and written back before COMMIT, so several
// processes sharing one database file never overwrite each other's commits.
// GetRoom, ListRooms, GetStudent and ListStudents read the working set as of
// the last transaction or View.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hostelcore/internal/infra/persistence/memory"
	"hostelcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	bucketRooms    = "rooms"
	bucketStudents = "students"

	busyTimeoutMillis = 5000
)

var sqliteBuckets = []string{bucketRooms, bucketStudents}

// Store wraps memory.Store and writes a JSON snapshot per bucket to SQLite.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "hostelcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	// WAL lets other processes keep reading while a writer holds the lock.
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.Refresh(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func loadSnapshot(ctx context.Context, q execQueryer) (memory.Snapshot, error) {
	rows, err := q.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan: %w", err)
		}
		switch bucket {
		case bucketRooms:
			if err := json.Unmarshal(payload, &snapshot.Rooms); err != nil {
				return memory.Snapshot{}, fmt.Errorf("decode rooms: %w", err)
			}
		case bucketStudents:
			if err := json.Unmarshal(payload, &snapshot.Students); err != nil {
				return memory.Snapshot{}, fmt.Errorf("decode students: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, nil
}

func writeSnapshot(ctx context.Context, q execQueryer, snapshot memory.Snapshot) error {
	for _, bucket := range sqliteBuckets {
		var data []byte
		var err error
		switch bucket {
		case bucketRooms:
			data, err = json.Marshal(snapshot.Rooms)
		case bucketStudents:
			data, err = json.Marshal(snapshot.Students)
		}
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err = q.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return nil
}

// Refresh replaces the working set with the committed database state.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, err := loadSnapshot(ctx, s.db)
	if err != nil {
		return err
	}
	s.ImportState(snapshot)
	return nil
}

// View refreshes the working set and then reads it.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return s.Store.View(ctx, fn)
}

// RunInTransaction reloads the committed state under a write lock, applies fn
// and writes the result back in the same database transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return domain.Result{}, fmt.Errorf("acquire conn: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return domain.Result{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), `ROLLBACK`)
		}
	}()

	base, err := loadSnapshot(ctx, conn)
	if err != nil {
		return domain.Result{}, err
	}
	s.ImportState(base)

	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	wctx := context.WithoutCancel(ctx)
	if err := writeSnapshot(wctx, conn, s.ExportState()); err != nil {
		s.ImportState(base)
		return res, err
	}
	if _, err := conn.ExecContext(wctx, `COMMIT`); err != nil {
		s.ImportState(base)
		return res, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
