package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reelup/internal/history"
	"reelup/internal/testsupport"
	"reelup/internal/upload"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if store.Path() != cfg.HistoryPath() {
		t.Fatalf("Path = %q, want %q", store.Path(), cfg.HistoryPath())
	}
	if err := store.CheckHealth(context.Background()); err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}

	// Reopening an initialized database must pass the version check.
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened.Close()
}

const schemaV1 = `
CREATE TABLE schema_version (version INTEGER NOT NULL);
INSERT INTO schema_version (version) VALUES (1);
CREATE TABLE uploads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    upload_uuid TEXT NOT NULL UNIQUE,
    source_path TEXT NOT NULL,
    title TEXT,
    privacy_status TEXT,
    resource_id TEXT,
    playlist_id TEXT,
    status TEXT NOT NULL,
    error_kind TEXT,
    error_message TEXT,
    retries INTEGER NOT NULL DEFAULT 0,
    chunks INTEGER NOT NULL DEFAULT 0,
    bytes INTEGER NOT NULL DEFAULT 0,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT
);
INSERT INTO uploads (upload_uuid, source_path, status, started_at)
VALUES ('old', '/videos/old.mp4', 'uploaded', '2026-01-01T00:00:00Z');
`

func seedDatabase(t *testing.T, path, script string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(script); err != nil {
		t.Fatalf("seed db: %v", err)
	}
}

func TestOpenMigratesVersionOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	seedDatabase(t, path, schemaV1)

	store, err := history.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	old, err := store.GetByID(ctx, 1)
	if err != nil || old == nil || old.SourcePath != "/videos/old.mp4" || old.Language != "" {
		t.Fatalf("existing row after migration = %+v, %v", old, err)
	}
	record, err := store.Begin(ctx, history.Entry{SourcePath: "/videos/new.mp4", Language: "fr"})
	if err != nil {
		t.Fatalf("Begin after migration: %v", err)
	}
	if record.Language != "fr" {
		t.Fatalf("Language = %q", record.Language)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	seedDatabase(t, path, "CREATE TABLE schema_version (version INTEGER NOT NULL); INSERT INTO schema_version (version) VALUES (99);")

	_, err := history.OpenPath(path)
	if !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestBeginAndFinish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	record, err := store.Begin(ctx, history.Entry{
		SourcePath:    "/videos/clip.mp4",
		Title:         "Clip",
		PrivacyStatus: "public",
		Language:      "de",
		PlaylistID:    "PL1",
		SizeBytes:     4096,
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if record.ID == 0 || record.UploadID == "" {
		t.Fatalf("expected ids to be assigned: %+v", record)
	}
	if record.Status != history.StatusUploading || record.FinishedAt != nil {
		t.Fatalf("unexpected initial state: %+v", record)
	}

	result := history.Result{
		Status:     history.StatusUploaded,
		ResourceID: "vid123",
		Retries:    2,
		Chunks:     4,
		Bytes:      4096,
	}
	if err := store.Finish(ctx, record.ID, result); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FinishedAt == nil {
		t.Fatal("FinishedAt not set")
	}
	want := history.Record{
		ID:            record.ID,
		UploadID:      record.UploadID,
		SourcePath:    "/videos/clip.mp4",
		Title:         "Clip",
		PrivacyStatus: "public",
		Language:      "de",
		ResourceID:    "vid123",
		PlaylistID:    "PL1",
		Status:        history.StatusUploaded,
		Retries:       2,
		Chunks:        4,
		Bytes:         4096,
		SizeBytes:     4096,
	}
	trimmed := *got
	trimmed.StartedAt = want.StartedAt
	trimmed.FinishedAt = nil
	if diff := cmp.Diff(want, trimmed); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if got.Duration() < 0 {
		t.Fatalf("negative duration %v", got.Duration())
	}

	last, err := store.LastUploaded(ctx, "/videos/clip.mp4")
	if err != nil || last == nil || last.ID != record.ID {
		t.Fatalf("LastUploaded = %+v, %v", last, err)
	}
}

func TestBeginRequiresSource(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := store.Begin(context.Background(), history.Entry{SourcePath: "  "}); err == nil {
		t.Fatal("expected error for empty source path")
	}
}

func TestFinishValidation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.Finish(ctx, 999, history.Result{Status: history.StatusFailed}); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	record := testsupport.BeginUpload(t, store, "/videos/a.mp4", "A")
	if err := store.Finish(ctx, record.ID, history.Result{Status: history.StatusUploading}); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}

func TestListFiltersAndLimits(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	statuses := []history.Status{
		history.StatusUploaded,
		history.StatusFailed,
		history.StatusUploaded,
		history.StatusAttachFailed,
	}
	for i, status := range statuses {
		record := testsupport.BeginUpload(t, store, filepath.Join("/videos", string(rune('a'+i))+".mp4"), "")
		if err := store.Finish(ctx, record.ID, history.Result{Status: status}); err != nil {
			t.Fatalf("Finish: %v", err)
		}
	}
	testsupport.BeginUpload(t, store, "/videos/e.mp4", "")

	all, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 || all[0].SourcePath != "/videos/e.mp4" {
		t.Fatalf("expected 5 records newest first, got %d (first %q)", len(all), all[0].SourcePath)
	}

	uploaded, err := store.List(ctx, history.ListOptions{Status: history.StatusUploaded})
	if err != nil {
		t.Fatalf("List uploaded: %v", err)
	}
	if len(uploaded) != 2 {
		t.Fatalf("uploaded records = %d, want 2", len(uploaded))
	}

	limited, err := store.List(ctx, history.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited records = %d, want 2", len(limited))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := map[history.Status]int{
		history.StatusUploaded:     2,
		history.StatusFailed:       1,
		history.StatusAttachFailed: 1,
		history.StatusUploading:    1,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestResultFromOutcome(t *testing.T) {
	cases := []struct {
		name    string
		outcome upload.Outcome
		status  history.Status
		kind    string
	}{
		{
			name:    "uploaded",
			outcome: upload.Outcome{ResourceID: "v", CollectionID: "PL", Attached: true},
			status:  history.StatusUploaded,
		},
		{
			name:    "attach failed keeps resource",
			outcome: upload.Outcome{ResourceID: "v", Err: &upload.Error{Kind: upload.KindAttachmentFailed}},
			status:  history.StatusAttachFailed,
			kind:    "attachment_failed",
		},
		{
			name:    "canceled",
			outcome: upload.Outcome{Err: &upload.Error{Kind: upload.KindCanceled, Err: context.Canceled}},
			status:  history.StatusCanceled,
			kind:    "canceled",
		},
		{
			name:    "exhausted",
			outcome: upload.Outcome{Err: &upload.Error{Kind: upload.KindRetriesExhausted, Retries: 10}},
			status:  history.StatusFailed,
			kind:    "retries_exhausted",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := history.ResultFromOutcome(tc.outcome)
			if result.Status != tc.status || result.ErrorKind != tc.kind {
				t.Fatalf("got status=%q kind=%q, want %q/%q", result.Status, result.ErrorKind, tc.status, tc.kind)
			}
			if result.ResourceID != tc.outcome.ResourceID {
				t.Fatalf("ResourceID = %q", result.ResourceID)
			}
			if tc.outcome.Err != nil && result.ErrorMessage == "" {
				t.Fatal("ErrorMessage should carry the outcome message")
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range history.AllStatuses() {
		got, err := history.ParseStatus(" " + string(status) + " ")
		if err != nil || got != status {
			t.Fatalf("ParseStatus(%q) = %q, %v", status, got, err)
		}
	}
	if _, err := history.ParseStatus("done"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
