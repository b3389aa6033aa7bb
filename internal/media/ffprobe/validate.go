package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"reelup/internal/services"
)

var (
	ErrNoVideoStream = errors.New("no video stream")
	ErrTooLong       = errors.New("source exceeds maximum duration")
)

// Rules are the checks applied to a source before upload.
type Rules struct {
	RequireVideo bool
	// MaxDuration of zero disables the duration cap.
	MaxDuration time.Duration
}

// Validate checks an inspection result against rules.
func Validate(result Result, rules Rules) error {
	if rules.RequireVideo && result.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "ffprobe", "validate", result.Format.Filename, ErrNoVideoStream)
	}
	if rules.MaxDuration > 0 {
		seconds := result.DurationSeconds()
		if math.IsNaN(seconds) {
			return services.Wrap(services.ErrValidation, "ffprobe", "validate", "unreadable duration", nil)
		}
		if d := result.Duration(); d > rules.MaxDuration {
			return services.Wrap(services.ErrValidation, "ffprobe", "validate",
				fmt.Sprintf("%s is %s, limit %s", result.Format.Filename, d.Round(time.Millisecond), rules.MaxDuration),
				ErrTooLong)
		}
	}
	return nil
}

// Check inspects path and validates it. A failure to run ffprobe is tagged as
// an external tool error.
func Check(ctx context.Context, binary, path string, rules Rules) (Result, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", path, err)
	}
	if result.Format.Filename == "" {
		result.Format.Filename = path
	}
	if err := Validate(result, rules); err != nil {
		return result, err
	}
	return result, nil
}
