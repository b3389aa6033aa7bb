package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"reelup/internal/config"
	"reelup/internal/deps"
	"reelup/internal/history"
	"reelup/internal/services/youtube"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckClientSecrets verifies the OAuth client secrets file parses.
func CheckClientSecrets(path string) Result {
	const name = "Client secrets"
	cfg, err := youtube.LoadOAuthConfig(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (client %s)", path, cfg.ClientID)}
}

// CheckToken verifies a stored OAuth token exists and can be refreshed.
func CheckToken(path string) Result {
	const name = "OAuth token"
	tok, err := youtube.NewTokenStore(path).Load()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return Result{Name: name, Detail: "token expired and holds no refresh token; run `reelup auth`"}
	}
	if tok.RefreshToken == "" {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no refresh token; expires %s)", path, tok.Expiry.Format(time.RFC3339))}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckHistory opens the history database and runs its integrity check.
func CheckHistory(ctx context.Context, path string) Result {
	const name = "History database"
	store, err := history.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()
	if err := store.CheckHealth(ctx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckYouTubeAPI confirms the stored credentials are accepted by the Data
// API by fetching the authorized channel. It uses a 15-second timeout.
func CheckYouTubeAPI(ctx context.Context, cfg *config.Config) Result {
	const name = "YouTube API"
	oauthCfg, err := youtube.LoadOAuthConfig(cfg.YouTube.ClientSecretsFile)
	if err != nil {
		return Result{Name: name, Detail: "client secrets unavailable"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := youtube.NewHTTPClient(checkCtx, oauthCfg, youtube.NewTokenStore(cfg.YouTube.TokenFile), 15*time.Second, nil)
	if err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	attacher, err := youtube.NewPlaylistAttacher(checkCtx, client, cfg.YouTube.APIBaseURL)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	title, err := attacher.ChannelTitle(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authorized as %q", title)}
}

// CheckSystemDeps evaluates the external binaries required by the config.
// ffprobe is only required when media validation is enabled.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media validation",
			Optional:    !cfg.Media.Validate,
			VersionArgs: []string{"-version"},
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

// summarizeAPIError produces a human-readable summary for API check failures.
func summarizeAPIError(err error) string {
	if youtube.IsUnauthorized(err) {
		return "credentials rejected; run `reelup auth`"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (YouTube API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (YouTube API unreachable)"
	}
	return err.Error()
}
