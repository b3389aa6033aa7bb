package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("upload record not found")

// Entry describes an upload that is about to start.
type Entry struct {
	// UploadID correlates the record with log lines; one is generated when empty.
	UploadID      string
	SourcePath    string
	Title         string
	PrivacyStatus string
	Language      string
	PlaylistID    string
	SizeBytes     int64
}

// ListOptions filters List results.
type ListOptions struct {
	// Limit caps the number of rows; zero or negative returns every row.
	Limit  int
	Status Status
}

// Begin records an upload in the uploading state.
func (s *Store) Begin(ctx context.Context, entry Entry) (*Record, error) {
	entry.SourcePath = strings.TrimSpace(entry.SourcePath)
	if entry.SourcePath == "" {
		return nil, errors.New("begin upload: source path required")
	}
	if entry.UploadID == "" {
		entry.UploadID = uuid.NewString()
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO uploads (
            upload_uuid, source_path, title, privacy_status, language,
            playlist_id, status, size_bytes, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UploadID,
		entry.SourcePath,
		nullableString(entry.Title),
		nullableString(entry.PrivacyStatus),
		nullableString(entry.Language),
		nullableString(entry.PlaylistID),
		StatusUploading,
		entry.SizeBytes,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert upload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Finish stores the terminal state of record id.
func (s *Store) Finish(ctx context.Context, id int64, result Result) error {
	if result.Status == "" || result.Status == StatusUploading {
		return fmt.Errorf("finish upload %d: terminal status required", id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE uploads
         SET status = ?, resource_id = ?, playlist_id = COALESCE(?, playlist_id),
             error_kind = ?, error_message = ?, retries = ?, chunks = ?, bytes = ?,
             finished_at = ?
         WHERE id = ?`,
		result.Status,
		nullableString(result.ResourceID),
		nullableString(result.PlaylistID),
		nullableString(result.ErrorKind),
		nullableString(result.ErrorMessage),
		result.Retries,
		result.Chunks,
		result.Bytes,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish upload %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish upload %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("finish upload %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetByID fetches a record by identifier. A missing record returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordColumns+` FROM uploads WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return record, nil
}

// LastUploaded returns the most recent successful record for sourcePath, or nil.
func (s *Store) LastUploaded(ctx context.Context, sourcePath string) (*Record, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+recordColumns+` FROM uploads
         WHERE source_path = ? AND resource_id IS NOT NULL
         ORDER BY id DESC LIMIT 1`,
		sourcePath,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last uploaded: %w", err)
	}
	return record, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM uploads`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns a count of records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM uploads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// CheckHealth verifies the database answers queries and passes an integrity check.
func (s *Store) CheckHealth(ctx context.Context) error {
	ctx = ensureContext(ctx)
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("history integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("history integrity check: %s", result)
	}
	return nil
}
