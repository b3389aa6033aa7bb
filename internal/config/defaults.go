package config

const (
	defaultStateDir              = "~/.local/share/reelup"
	defaultLogDir                = "~/.local/share/reelup/logs"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultClientSecretsFile     = "~/.config/reelup/client_secrets.json"
	defaultTokenFile             = "~/.config/reelup/token.json"
	defaultAPIBaseURL            = "https://youtube.googleapis.com/"
	defaultUploadBaseURL         = "https://www.googleapis.com/upload/youtube/v3"
	defaultRequestTimeoutSeconds = 300
	defaultMaxRetries            = 10
	defaultChunkSizeBytes        = -1
	defaultCategory              = "22"
	defaultPrivacy               = "public"
	defaultParallel              = 1
	defaultFFprobeBinary         = "ffprobe"
	defaultNotifyRequestTimeout  = 10

	// ChunkSizeMultiple is the granularity the upload endpoint requires for
	// every chunk except the last.
	ChunkSizeMultiple = 256 * 1024
	// MaxParallel bounds concurrent uploads in one batch.
	MaxParallel = 8
)

// PrivacyStatuses lists the accepted video privacy values.
var PrivacyStatuses = []string{"public", "private", "unlisted"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		YouTube: YouTube{
			ClientSecretsFile:     defaultClientSecretsFile,
			TokenFile:             defaultTokenFile,
			APIBaseURL:            defaultAPIBaseURL,
			UploadBaseURL:         defaultUploadBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Upload: Upload{
			MaxRetries:      defaultMaxRetries,
			ChunkSizeBytes:  defaultChunkSizeBytes,
			DefaultCategory: defaultCategory,
			DefaultPrivacy:  defaultPrivacy,
			Parallel:        defaultParallel,
		},
		Media: Media{
			Validate:      true,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Upload:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
