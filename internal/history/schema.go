package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the version schema.sql creates. Older databases are
// brought forward by migrations; newer ones are refused.
const schemaVersion = 2

// migrations[v] upgrades a database from version v to v+1.
var migrations = map[int][]string{
	1: {"ALTER TABLE uploads ADD COLUMN language TEXT"},
}

// ErrSchemaMismatch indicates the database was written by a newer reelup.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.inTx(ctx, func(exec execer) error {
			if _, err := exec.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			if _, err := exec.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
			return nil
		})
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case version == schemaVersion:
		return nil
	case version > schemaVersion:
		return fmt.Errorf("%w: %s has version %d, this reelup understands up to %d",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return s.migrate(ctx, version)
}

// migrate applies every step from version up to schemaVersion in one
// transaction, so a failure leaves the database untouched.
func (s *Store) migrate(ctx context.Context, version int) error {
	return s.inTx(ctx, func(exec execer) error {
		for v := version; v < schemaVersion; v++ {
			steps, ok := migrations[v]
			if !ok {
				return fmt.Errorf("%w: no migration from version %d", ErrSchemaMismatch, v)
			}
			for _, stmt := range steps {
				if _, err := exec.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migrate schema %d->%d: %w", v, v+1, err)
				}
			}
		}
		if _, err := exec.ExecContext(ctx, "UPDATE schema_version SET version = ?", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) inTx(ctx context.Context, fn func(execer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
