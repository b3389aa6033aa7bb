package history

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "id, upload_uuid, source_path, title, privacy_status, language, resource_id, playlist_id, status, error_kind, error_message, retries, chunks, bytes, size_bytes, started_at, finished_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		uploadID     string
		sourcePath   string
		title        sql.NullString
		privacy      sql.NullString
		lang         sql.NullString
		resourceID   sql.NullString
		playlistID   sql.NullString
		statusStr    string
		errorKind    sql.NullString
		errorMessage sql.NullString
		retries      int
		chunks       int
		bytes        int64
		sizeBytes    int64
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&uploadID,
		&sourcePath,
		&title,
		&privacy,
		&lang,
		&resourceID,
		&playlistID,
		&statusStr,
		&errorKind,
		&errorMessage,
		&retries,
		&chunks,
		&bytes,
		&sizeBytes,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:            id,
		UploadID:      uploadID,
		SourcePath:    sourcePath,
		Title:         title.String,
		PrivacyStatus: privacy.String,
		Language:      lang.String,
		ResourceID:    resourceID.String,
		PlaylistID:    playlistID.String,
		Status:        Status(statusStr),
		ErrorKind:     errorKind.String,
		ErrorMessage:  errorMessage.String,
		Retries:       retries,
		Chunks:        chunks,
		Bytes:         bytes,
		SizeBytes:     sizeBytes,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		record.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			record.FinishedAt = &finished
		}
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
