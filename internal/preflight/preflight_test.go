package preflight

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"reelup/internal/config"
	"reelup/internal/services/youtube"
	"reelup/internal/testsupport"
)

func writeCredentials(t *testing.T, cfg *config.Config) {
	t.Helper()
	testsupport.WriteClientSecrets(t, cfg.YouTube.ClientSecretsFile)
	tok := &oauth2.Token{AccessToken: "live", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	if err := youtube.NewTokenStore(cfg.YouTube.TokenFile).Save(tok); err != nil {
		t.Fatalf("save token: %v", err)
	}
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckClientSecrets_Missing(t *testing.T) {
	result := CheckClientSecrets(filepath.Join(t.TempDir(), "client_secrets.json"))
	if result.Passed {
		t.Fatal("expected failure for missing secrets")
	}
	if !strings.Contains(result.Detail, "not found") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckToken_MissingPointsAtAuth(t *testing.T) {
	result := CheckToken(filepath.Join(t.TempDir(), "token.json"))
	if result.Passed {
		t.Fatal("expected failure for missing token")
	}
	if !strings.Contains(result.Detail, "reelup auth") {
		t.Fatalf("expected auth hint, got %q", result.Detail)
	}
}

func TestCheckToken_ExpiredWithoutRefresh(t *testing.T) {
	store := youtube.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	if err := store.Save(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("save token: %v", err)
	}
	if result := CheckToken(store.Path()); result.Passed {
		t.Fatalf("expected failure for expired token, got %q", result.Detail)
	}
}

func TestCheckHistory_CreatesAndChecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	result := CheckHistory(context.Background(), path)
	if !result.Passed {
		t.Fatalf("expected healthy history db, got %q", result.Detail)
	}
}

func TestCheckSystemDeps_FFprobeOptionalWithoutValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Media.FFprobeBinary = "clearly-not-present-ffprobe"

	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 1 || !statuses[0].Optional {
		t.Fatalf("expected optional ffprobe status, got %#v", statuses)
	}
	if r := resultFromStatus(statuses[0]); !r.Passed {
		t.Fatalf("optional missing binary should not fail: %#v", r)
	}

	cfg.Media.Validate = true
	statuses = CheckSystemDeps(context.Background(), cfg)
	if r := resultFromStatus(statuses[0]); r.Passed {
		t.Fatalf("required missing binary should fail: %#v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReadyConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeFFprobe(""))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	writeCredentials(t, cfg)

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
	names := make(map[string]bool, len(results))
	for _, r := range results {
		names[r.Name] = true
		if r.Name == "FFprobe" && !strings.Contains(r.Detail, "ffprobe version test") {
			t.Errorf("FFprobe detail = %q, want version line", r.Detail)
		}
	}
	for _, want := range []string{"State directory", "Lock directory", "Log directory", "Client secrets", "OAuth token", "History database", "FFprobe"} {
		if !names[want] {
			t.Errorf("missing %q check", want)
		}
	}
}

func TestRunAll_ReportsMissingCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 2 {
		t.Fatalf("expected secrets and token failures, got %#v", failed)
	}
}

func TestCheckYouTubeAPI_Authorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/youtube/v3/channels" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer live" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{"snippet":{"title":"Clips"}}]}`)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithEndpoints(srv.URL))
	writeCredentials(t, cfg)

	result := CheckYouTubeAPI(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "Clips") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckYouTubeAPI_MissingToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteClientSecrets(t, cfg.YouTube.ClientSecretsFile)
	result := CheckYouTubeAPI(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure without a token")
	}
	if !strings.Contains(result.Detail, "reelup auth") {
		t.Fatalf("expected auth hint, got %q", result.Detail)
	}
}
