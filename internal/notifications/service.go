package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediavault/internal/config"
)

const userAgent = "mediavault-notify/1.0"

// Event names a notification the library can publish.
type Event string

const (
	EventDownloadCompleted Event = "download_completed"
	EventDownloadFailed    Event = "download_failed"
	EventBatchCompleted    Event = "batch_completed"
	EventImportCompleted   Event = "import_completed"
	EventError             Event = "error"
	EventTest              Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service defines the notification surface exposed to library components.
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
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		downloads: cfg.Notifications.Download,
		errors:    cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	downloads bool
	errors    bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventDownloadCompleted, EventBatchCompleted, EventImportCompleted:
		return n.downloads
	case EventDownloadFailed, EventError:
		return n.errors
	case EventTest:
		return true
	default:
		return false
	}
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventDownloadCompleted:
		title := payload.text("title")
		body := fmt.Sprintf("✅ Downloaded: %s", title)
		if kind := payload.text("kind"); kind != "" {
			body = fmt.Sprintf("%s (%s)", body, kind)
		}
		if size := payload.text("size"); size != "" {
			body = fmt.Sprintf("%s\nSize: %s", body, size)
		}
		return message{
			title: "MediaVault - Download Complete",
			body:  body,
			tags:  []string{"mediavault", "download", "completed"},
		}, true
	case EventDownloadFailed:
		return message{
			title:    "MediaVault - Download Failed",
			body:     fmt.Sprintf("❌ Download failed: %s\n%s", payload.text("title"), payload.text("error")),
			tags:     []string{"mediavault", "download", "failed"},
			priority: "high",
		}, true
	case EventBatchCompleted:
		succeeded := payload.number("succeeded")
		failed := payload.number("failed")
		duration := payload.duration("duration")
		if failed == 0 {
			return message{
				title: "MediaVault - Batch Complete",
				body:  fmt.Sprintf("Batch download complete: %d items in %s", succeeded, duration),
				tags:  []string{"mediavault", "batch", "completed"},
			}, true
		}
		return message{
			title: "MediaVault - Batch Complete (with errors)",
			body:  fmt.Sprintf("Batch download complete: %d succeeded, %d failed in %s", succeeded, failed, duration),
			tags:  []string{"mediavault", "batch", "completed"},
		}, true
	case EventImportCompleted:
		return message{
			title: "MediaVault - Imported",
			body:  fmt.Sprintf("📥 Imported: %s", payload.text("title")),
			tags:  []string{"mediavault", "import", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if text := payload.text("error"); text != "" {
			builder.WriteString(text)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "MediaVault - Error",
			body:     builder.String(),
			tags:     []string{"mediavault", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "MediaVault - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"mediavault", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) duration(key string) string {
	d, _ := p[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
