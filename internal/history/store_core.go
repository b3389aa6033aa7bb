package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelup/internal/config"
)

// Store manages the upload ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Parallel uploads in one process and separate reelup runs share the
// database, so writes may briefly see SQLITE_BUSY past busy_timeout.
const (
	sqliteBusyCode = 5
	busyAttempts   = 5
	busyFirstWait  = 10 * time.Millisecond
	busyMaxWait    = 200 * time.Millisecond
)

// connPragmas go in the DSN so every pooled connection gets them, not only
// the first.
var connPragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

func dataSourceName(dbPath string) string {
	query := url.Values{"_pragma": connPragmas}
	return dbPath + "?" + query.Encode()
}

// Open creates the state directories and opens the configured database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at dbPath, creating or migrating its schema.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	return withBusyRetry(ctx, func() (sql.Result, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
}

// withBusyRetry repeats op while SQLite reports the database as busy,
// doubling the wait up to busyMaxWait.
func withBusyRetry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	wait := busyFirstWait
	for attempt := 1; ; attempt++ {
		value, err := op()
		if err == nil || !isSQLiteBusy(err) || attempt == busyAttempts {
			return value, err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, busyMaxWait)
	}
}

func isSQLiteBusy(err error) bool {
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
