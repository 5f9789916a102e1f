// Package sqlite persists the front desk state to a single SQLite table, one
// JSON payload per bucket.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"zenstay/internal/infra/persistence/memory"
	"zenstay/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to SQLite. After every committed
// transaction it upserts the buckets the transaction wrote.
type Store struct {
	*memory.Store
	db     *sql.DB
	mu     sync.Mutex
	path   string
	issues []memory.LoadIssue
}

// NewStore opens (or creates) the database at path and hydrates the store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "zenstay.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	payloads, err := load(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	state, issues := memory.DecodeState(payloads)
	return &Store{
		Store:  memory.NewStoreWithState(engine, state),
		db:     db,
		path:   path,
		issues: issues,
	}, nil
}

func load(db *sql.DB) (map[domain.Bucket][]byte, error) {
	rows, err := db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := make(map[domain.Bucket][]byte)
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		payloads[domain.Bucket(bucket)] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return payloads, nil
}

func (s *Store) persist(ctx context.Context, buckets []domain.Bucket) (retErr error) {
	if len(buckets) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		data, err := memory.EncodeBucket(snapshot, bucket)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, string(bucket), data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RunInTransaction applies fn, then writes the dirtied buckets to SQLite. A
// write failure is reported as domain.PersistError; the commit stands.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, dirty, err := s.Store.RunTracked(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx, dirty); pErr != nil {
		return res, domain.PersistError{Buckets: dirty, Err: pErr}
	}
	return res, nil
}

// Replace swaps the whole state and writes every bucket.
func (s *Store) Replace(ctx context.Context, state domain.State) error {
	s.ImportState(state)
	return s.persist(ctx, domain.Buckets())
}

// LoadIssues lists the buckets that fell back to seed values on open.
func (s *Store) LoadIssues() []memory.LoadIssue { return s.issues }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
