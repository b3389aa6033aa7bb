package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"reelup/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateYouTube() error {
	if c.YouTube.RequestTimeoutSeconds < 0 {
		return errors.New("youtube.request_timeout_seconds must be >= 0")
	}
	if err := validateHTTPURL("youtube.api_base_url", c.YouTube.APIBaseURL); err != nil {
		return err
	}
	return validateHTTPURL("youtube.upload_base_url", c.YouTube.UploadBaseURL)
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxRetries < 0 {
		return errors.New("upload.max_retries must be >= 0")
	}
	if err := ValidateChunkSize(c.Upload.ChunkSizeBytes); err != nil {
		return fmt.Errorf("upload.chunk_size_bytes: %w", err)
	}
	if err := ValidateCategory(c.Upload.DefaultCategory); err != nil {
		return fmt.Errorf("upload.default_category: %w", err)
	}
	if _, err := NormalizePrivacy(c.Upload.DefaultPrivacy); err != nil {
		return fmt.Errorf("upload.default_privacy: %w", err)
	}
	if _, ok := language.Normalize(c.Upload.DefaultLanguage); !ok {
		return fmt.Errorf("upload.default_language: unrecognized language %q", c.Upload.DefaultLanguage)
	}
	if c.Upload.MaxBytesPerSecond < 0 {
		return errors.New("upload.max_bytes_per_second must be >= 0")
	}
	if c.Upload.Parallel < 1 || c.Upload.Parallel > MaxParallel {
		return fmt.Errorf("upload.parallel must be between 1 and %d", MaxParallel)
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.MaxDurationSeconds < 0 {
		return errors.New("media.max_duration_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

// ValidateChunkSize accepts -1 (whole remainder per request) or a positive
// multiple of ChunkSizeMultiple.
func ValidateChunkSize(size int64) error {
	if size == -1 {
		return nil
	}
	if size <= 0 || size%ChunkSizeMultiple != 0 {
		return fmt.Errorf("must be -1 or a positive multiple of %d, got %d", ChunkSizeMultiple, size)
	}
	return nil
}

// ValidateCategory requires a numeric YouTube video category id.
func ValidateCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return errors.New("category id is required")
	}
	if _, err := strconv.ParseUint(category, 10, 32); err != nil {
		return fmt.Errorf("category id %q is not numeric", category)
	}
	return nil
}

// NormalizePrivacy lowercases value and checks it against PrivacyStatuses.
func NormalizePrivacy(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if !slices.Contains(PrivacyStatuses, normalized) {
		return "", fmt.Errorf("privacy %q must be one of %s", value, strings.Join(PrivacyStatuses, ", "))
	}
	return normalized, nil
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, value)
	}
	return nil
}
