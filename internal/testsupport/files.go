package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// Pattern returns size bytes where each byte depends on its offset, so a
// chunk sent from the wrong position never matches the source.
func Pattern(size int64) []byte {
	data := make([]byte, max(size, 0))
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// WriteFile writes Pattern(size) to path, creating parent directories, and
// returns the written bytes. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) []byte {
	t.Helper()
	data := Pattern(max(size, 1))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return data
}

// ClientSecretsJSON is an installed-app client secrets file accepted by
// google.ConfigFromJSON. The token and consent endpoints point nowhere real.
const ClientSecretsJSON = `{"installed":{"client_id":"cid","client_secret":"shh",` +
	`"auth_uri":"https://accounts.example.test/auth","token_uri":"https://accounts.example.test/token",` +
	`"redirect_uris":["http://localhost"]}}`

// WriteClientSecrets writes ClientSecretsJSON to path.
func WriteClientSecrets(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir secrets dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(ClientSecretsJSON), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
}
