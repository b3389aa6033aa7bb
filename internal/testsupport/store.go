package testsupport

import (
	"context"
	"testing"

	"reelup/internal/config"
	"reelup/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginUpload records an in-progress upload for tests using the provided store.
func BeginUpload(t testing.TB, store *history.Store, sourcePath, title string) *history.Record {
	t.Helper()

	record, err := store.Begin(context.Background(), history.Entry{SourcePath: sourcePath, Title: title})
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return record
}
