package config

import (
	"fmt"
	"os"
	"strings"

	"reelup/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeYouTube(); err != nil {
		return err
	}
	c.normalizeUpload()
	c.normalizeMedia()
	c.normalizeNotifications()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeYouTube() error {
	var err error
	if value, ok := os.LookupEnv("REELUP_CLIENT_SECRETS"); ok && strings.TrimSpace(value) != "" {
		c.YouTube.ClientSecretsFile = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.YouTube.ClientSecretsFile) == "" {
		c.YouTube.ClientSecretsFile = defaultClientSecretsFile
	}
	if c.YouTube.ClientSecretsFile, err = expandPath(c.YouTube.ClientSecretsFile); err != nil {
		return fmt.Errorf("youtube.client_secrets_file: %w", err)
	}
	if value, ok := os.LookupEnv("REELUP_TOKEN_FILE"); ok && strings.TrimSpace(value) != "" {
		c.YouTube.TokenFile = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.YouTube.TokenFile) == "" {
		c.YouTube.TokenFile = defaultTokenFile
	}
	if c.YouTube.TokenFile, err = expandPath(c.YouTube.TokenFile); err != nil {
		return fmt.Errorf("youtube.token_file: %w", err)
	}
	c.YouTube.APIBaseURL = strings.TrimSpace(c.YouTube.APIBaseURL)
	if c.YouTube.APIBaseURL == "" {
		c.YouTube.APIBaseURL = defaultAPIBaseURL
	}
	if !strings.HasSuffix(c.YouTube.APIBaseURL, "/") {
		c.YouTube.APIBaseURL += "/"
	}
	c.YouTube.UploadBaseURL = strings.TrimRight(strings.TrimSpace(c.YouTube.UploadBaseURL), "/")
	if c.YouTube.UploadBaseURL == "" {
		c.YouTube.UploadBaseURL = defaultUploadBaseURL
	}
	return nil
}

func (c *Config) normalizeUpload() {
	c.Upload.DefaultCategory = strings.TrimSpace(c.Upload.DefaultCategory)
	if c.Upload.DefaultCategory == "" {
		c.Upload.DefaultCategory = defaultCategory
	}
	c.Upload.DefaultPrivacy = strings.ToLower(strings.TrimSpace(c.Upload.DefaultPrivacy))
	if c.Upload.DefaultPrivacy == "" {
		c.Upload.DefaultPrivacy = defaultPrivacy
	}
	c.Upload.DefaultPlaylistID = strings.TrimSpace(c.Upload.DefaultPlaylistID)
	if lang, ok := language.Normalize(c.Upload.DefaultLanguage); ok {
		c.Upload.DefaultLanguage = lang
	}
	if c.Upload.ChunkSizeBytes == 0 {
		c.Upload.ChunkSizeBytes = defaultChunkSizeBytes
	}
	if c.Upload.Parallel == 0 {
		c.Upload.Parallel = defaultParallel
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("REELUP_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	if strings.TrimSpace(c.Metrics.TextfilePath) == "" {
		c.Metrics.TextfilePath = ""
		return nil
	}
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
