package ffprobe

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"reelup/internal/services"
)

func TestAudioLanguage(t *testing.T) {
	result := Result{Streams: []Stream{
		{CodecType: "video", Tags: map[string]string{"language": "fre"}},
		{CodecType: "audio", Tags: map[string]string{"language": "und"}},
		{CodecType: "audio", Tags: map[string]string{"language": "ger"}},
	}}
	if got := result.AudioLanguage(); got != "de" {
		t.Fatalf("AudioLanguage = %q, want de", got)
	}
	if got := (Result{}).AudioLanguage(); got != "" {
		t.Fatalf("empty result language = %q", got)
	}
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", CodecName: "h264", Width: 1080, Height: 1920},
			{CodecType: "video", CodecName: "mjpeg"},
			{CodecType: "audio", CodecName: "aac"},
		},
		Format: Format{
			Duration: "59.5",
			Size:     "1000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if w, h := result.Resolution(); w != 1080 || h != 1920 {
		t.Fatalf("unexpected resolution %dx%d", w, h)
	}
	if result.Duration() != 59500*time.Millisecond {
		t.Fatalf("unexpected duration: %v", result.Duration())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{{Duration: "12.0"}, {Duration: "30.25"}},
		Format:  Format{Duration: "N/A"},
	}
	if result.DurationSeconds() != 30.25 {
		t.Fatalf("DurationSeconds = %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.Duration() != 0 {
		t.Fatalf("expected zero duration, got %v", result.Duration())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestValidate(t *testing.T) {
	video := Result{
		Streams: []Stream{{CodecType: "video", CodecName: "h264"}},
		Format:  Format{Filename: "clip.mp4", Duration: "75"},
	}
	audioOnly := Result{Streams: []Stream{{CodecType: "audio"}}, Format: Format{Duration: "10"}}

	cases := []struct {
		name   string
		result Result
		rules  Rules
		want   error
	}{
		{"video ok", video, Rules{RequireVideo: true}, nil},
		{"audio only rejected", audioOnly, Rules{RequireVideo: true}, ErrNoVideoStream},
		{"audio only allowed", audioOnly, Rules{}, nil},
		{"too long", video, Rules{MaxDuration: 60 * time.Second}, ErrTooLong},
		{"within cap", video, Rules{MaxDuration: 90 * time.Second}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.result, tc.rules)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("validation errors must carry ErrValidation: %v", err)
			}
		})
	}
}

func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckRunsBinary(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	stub := writeStub(t, `cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":720,"height":1280}],"format":{"duration":"42.0","size":"2048"}}
JSON
`)
	result, err := Check(context.Background(), stub, "/videos/clip.mp4", Rules{RequireVideo: true, MaxDuration: time.Minute})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Format.Filename != "/videos/clip.mp4" {
		t.Fatalf("Filename = %q", result.Format.Filename)
	}
	if result.Duration() != 42*time.Second {
		t.Fatalf("Duration = %v", result.Duration())
	}
}

func TestCheckReportsToolFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	stub := writeStub(t, "echo 'clip.mp4: Invalid data found' >&2\nexit 1\n")
	_, err := Check(context.Background(), stub, "clip.mp4", Rules{})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestInspectRequiresPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
