package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelup/internal/config"
)

const userAgent = "reelup/0.1.0"

// Event enumerates the notifications reelup can send.
type Event string

const (
	EventUploadCompleted  Event = "upload_completed"
	EventUploadFailed     Event = "upload_failed"
	EventAttachFailed     Event = "attach_failed"
	EventBatchCompleted   Event = "batch_completed"
	EventTestNotification Event = "test"
)

// Payload carries event fields. Keys are documented per event in format.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		uploads:  cfg.Notifications.Upload,
		errorsOn: cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	uploads  bool
	errorsOn bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unsupported notification event %q", event)
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventUploadCompleted, EventBatchCompleted:
		return n.uploads
	case EventUploadFailed, EventAttachFailed:
		return n.errorsOn
	default:
		return true
	}
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventUploadCompleted:
		title := payloadString(payload, "title")
		body := fmt.Sprintf("✅ Uploaded: %s", title)
		if id := payloadString(payload, "videoId"); id != "" {
			body = fmt.Sprintf("%s\nhttps://youtu.be/%s", body, id)
		}
		if playlist := payloadString(payload, "playlistId"); playlist != "" {
			body = fmt.Sprintf("%s\nPlaylist: %s", body, playlist)
		}
		return message{
			title: "reelup - Upload Complete",
			body:  body,
			tags:  []string{"reelup", "upload", "completed"},
		}, true
	case EventUploadFailed:
		body := fmt.Sprintf("❌ Upload failed: %s", payloadString(payload, "source"))
		if kind := payloadString(payload, "errorKind"); kind != "" {
			body = fmt.Sprintf("%s (%s)", body, kind)
		}
		if errText := payloadString(payload, "error"); errText != "" {
			body = fmt.Sprintf("%s\n%s", body, errText)
		}
		return message{
			title:    "reelup - Upload Failed",
			body:     body,
			tags:     []string{"reelup", "upload", "error"},
			priority: "high",
		}, true
	case EventAttachFailed:
		body := fmt.Sprintf("⚠️ Uploaded %s but could not add it to playlist %s",
			payloadString(payload, "videoId"), payloadString(payload, "playlistId"))
		if errText := payloadString(payload, "error"); errText != "" {
			body = fmt.Sprintf("%s\n%s", body, errText)
		}
		return message{
			title:    "reelup - Playlist Attach Failed",
			body:     body,
			tags:     []string{"reelup", "playlist", "error"},
			priority: "high",
		}, true
	case EventBatchCompleted:
		succeeded := payloadInt(payload, "succeeded")
		failed := payloadInt(payload, "failed")
		duration := payloadDuration(payload, "duration")
		title := "reelup - Batch Complete"
		body := fmt.Sprintf("Uploaded %d files in %s", succeeded, duration)
		if failed > 0 {
			title = "reelup - Batch Complete (with errors)"
			body = fmt.Sprintf("%d succeeded, %d failed in %s", succeeded, failed, duration)
		}
		return message{
			title: title,
			body:  body,
			tags:  []string{"reelup", "batch", "completed"},
		}, true
	case EventTestNotification:
		return message{
			title:    "reelup - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reelup", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func payloadInt(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func payloadDuration(payload Payload, key string) string {
	d, _ := payload[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
