package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type busyError struct{ code int }

func (e busyError) Error() string { return "sqlite error" }
func (e busyError) Code() int     { return e.code }

func TestWithBusyRetryRetriesOnlyBusy(t *testing.T) {
	calls := 0
	got, err := withBusyRetry(context.Background(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, busyError{code: sqliteBusyCode}
		}
		return 42, nil
	})
	if err != nil || got != 42 || calls != 3 {
		t.Fatalf("got %d, %v after %d calls", got, err, calls)
	}

	calls = 0
	constraint := busyError{code: 19}
	_, err = withBusyRetry(context.Background(), func() (int, error) {
		calls++
		return 0, constraint
	})
	if !errors.Is(err, constraint) || calls != 1 {
		t.Fatalf("non-busy error retried: %v after %d calls", err, calls)
	}
}

func TestWithBusyRetryGivesUp(t *testing.T) {
	calls := 0
	_, err := withBusyRetry(context.Background(), func() (struct{}, error) {
		calls++
		return struct{}{}, errors.New("database is locked")
	})
	if err == nil || calls != busyAttempts {
		t.Fatalf("expected failure after %d attempts, got %v after %d", busyAttempts, err, calls)
	}
}

func TestWithBusyRetryHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := withBusyRetry(ctx, func() (int, error) {
		return 0, busyError{code: sqliteBusyCode}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenPathAppliesPragmasToEveryConnection(t *testing.T) {
	store, err := OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()
	store.db.SetMaxIdleConns(0)

	for range 3 {
		var timeout int
		if err := store.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("read busy_timeout: %v", err)
		}
		if timeout != 5000 {
			t.Fatalf("busy_timeout = %d, want 5000", timeout)
		}
	}
}
