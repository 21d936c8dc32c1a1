package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"orsi/internal/config"
)

// Event identifies a notification kind.
type Event string

const (
	EventVideoReady Event = "video_ready"
	EventJobFailed  Event = "job_failed"
	EventTest       Event = "test"
)

// Payload carries event fields such as "filename".
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userAgent := strings.TrimSpace(cfg.API.UserAgent)
	if userAgent == "" {
		userAgent = "orsi"
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		failures:  cfg.Notifications.NotifyFailures,
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
	userAgent string
	failures  bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// format returns false for events that are not pushed.
func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	filename := payloadString(payload, "filename")
	switch event {
	case EventVideoReady:
		return message{
			title:    "Orsi - Video Ready",
			body:     fmt.Sprintf("✅ Processed and ready: %s", filename),
			tags:     []string{"orsi", "processed"},
			priority: "high",
		}, true
	case EventJobFailed:
		if !n.failures {
			return message{}, false
		}
		body := fmt.Sprintf("❌ Processing failed: %s", filename)
		if reason := payloadString(payload, "error"); reason != "" {
			body += "\n" + reason
		}
		return message{
			title:    "Orsi - Processing Failed",
			body:     body,
			tags:     []string{"orsi", "failed", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Orsi - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"orsi", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
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
		return fmt.Sprint(v)
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// Enabled reports whether svc delivers anywhere.
func Enabled(svc Service) bool {
	if svc == nil {
		return false
	}
	_, noop := svc.(noopService)
	return !noop
}
