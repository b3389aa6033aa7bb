package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelup/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.YouTube.ClientSecretsFile = filepath.Join(base, "client_secrets.json")
	cfgVal.YouTube.TokenFile = filepath.Join(base, "token.json")
	cfgVal.Media.Validate = false
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithEndpoints routes API and upload calls to a test server.
func WithEndpoints(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.YouTube.APIBaseURL = baseURL + "/"
		b.cfg.YouTube.UploadBaseURL = baseURL + "/upload/youtube/v3"
	}
}

// DefaultProbeJSON is what the fake ffprobe reports unless told otherwise:
// one video stream and one English audio stream, twelve seconds long.
const DefaultProbeJSON = `{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":1080,"height":1920},` +
	`{"index":1,"codec_type":"audio","codec_name":"aac","tags":{"language":"eng"}}],"format":{"duration":"12.0"}}`

// WithFakeFFprobe installs a shell script standing in for ffprobe, points
// media.ffprobe_binary at it and turns media validation on. The script
// answers -version with a version line and anything else with probeJSON
// (DefaultProbeJSON when empty).
func WithFakeFFprobe(probeJSON string) ConfigOption {
	return func(b *configBuilder) {
		if probeJSON == "" {
			probeJSON = DefaultProbeJSON
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := "#!/bin/sh\n" +
			"if [ \"$1\" = \"-version\" ]; then echo 'ffprobe version test'; exit 0; fi\n" +
			"cat <<'JSON'\n" + probeJSON + "\nJSON\n"
		target := filepath.Join(binDir, "ffprobe")
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write fake ffprobe: %v", err)
		}
		b.cfg.Media.FFprobeBinary = target
		b.cfg.Media.Validate = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
