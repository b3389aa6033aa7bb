package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	ytapi "google.golang.org/api/youtube/v3"

	"reelup/internal/logging"
	"reelup/internal/services"
)

// Scopes requested during consent.
var Scopes = []string{
	ytapi.YoutubeUploadScope,
	ytapi.YoutubeScope,
	ytapi.YoutubeForceSslScope,
}

// LoadOAuthConfig reads an installed-app client secrets file downloaded
// from the Google Cloud console.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "youtube", "load client secrets", fmt.Sprintf("client secrets file %s not found", path), err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "load client secrets", "read failed", err)
	}
	cfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "load client secrets", "parse failed", err)
	}
	return cfg, nil
}

// TokenStore persists the OAuth token as JSON.
type TokenStore struct {
	path string
}

// NewTokenStore returns a store backed by path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the token file location.
func (s *TokenStore) Path() string { return s.path }

// Load reads the stored token. A missing file is reported as an
// authorization error so the CLI can point at `reelup auth`.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrUnauthorized, "youtube", "load token", "no stored token; run `reelup auth`", err)
		}
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, services.Wrap(services.ErrUnauthorized, "youtube", "load token", "token file is corrupt; run `reelup auth`", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, services.Wrap(services.ErrUnauthorized, "youtube", "load token", "token file holds no credentials; run `reelup auth`", nil)
	}
	return &tok, nil
}

// Save writes tok atomically with owner-only permissions.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("save token: nil token")
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("create temp token: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp token: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

// persistingTokenSource saves every token whose access token differs from
// the last one it saw.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	store  *TokenStore
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.store.Save(tok); err != nil {
			p.logger.Warn("persist refreshed token failed",
				logging.String("path", p.store.Path()),
				logging.Error(err),
				logging.String(logging.FieldEventType, "token_persist_failed"),
				logging.String(logging.FieldErrorHint, "check permissions on the token file directory"),
			)
		} else {
			p.logger.Debug("oauth token refreshed", logging.String("path", p.store.Path()))
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

// NewHTTPClient returns an authorized client whose refreshed tokens are
// written back to store. ctx supplies the base client through
// oauth2.HTTPClient when set. timeout caps each whole request; the
// resumable transport turns it into a stall timeout for chunk uploads.
func NewHTTPClient(ctx context.Context, cfg *oauth2.Config, store *TokenStore, timeout time.Duration, logger *slog.Logger) (*http.Client, error) {
	if cfg == nil {
		return nil, errors.New("youtube client: oauth config required")
	}
	if store == nil {
		return nil, errors.New("youtube client: token store required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	source := &persistingTokenSource{
		base:   cfg.TokenSource(ctx, tok),
		store:  store,
		logger: logging.NewComponentLogger(logger, "youtube"),
		last:   tok.AccessToken,
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, source))
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client, nil
}

// IsUnauthorized reports whether err means the stored credentials are
// missing or rejected.
func IsUnauthorized(err error) bool {
	if errors.Is(err, services.ErrUnauthorized) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}
	return strings.Contains(strings.ToLower(fmt.Sprint(err)), "invalid_grant")
}
