package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deckhand/internal/config"
)

const userAgent = "Deckhand/0.1.0"

// Service defines the notification surface exposed to job handling.
type Service interface {
	NotifyJobComplete(ctx context.Context, fileName, outputPath string) error
	NotifyJobFailed(ctx context.Context, fileName, errMsg string) error
	NotifyAuthRequired(ctx context.Context, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobComplete(ctx context.Context, fileName, outputPath string) error {
	fileName = strings.TrimSpace(fileName)
	outputPath = strings.TrimSpace(outputPath)
	message := fmt.Sprintf("✅ Slide deck ready: %s", fileName)
	if outputPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputPath)
	}
	data := payload{
		title:    "Deckhand - Complete",
		message:  message,
		tags:     []string{"deckhand", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, fileName, errMsg string) error {
	fileName = strings.TrimSpace(fileName)
	errMsg = strings.TrimSpace(errMsg)
	if errMsg == "" {
		errMsg = "unknown error"
	}
	data := payload{
		title:    "Deckhand - Failed",
		message:  fmt.Sprintf("❌ Generation failed: %s\n%s", fileName, errMsg),
		tags:     []string{"deckhand", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAuthRequired(ctx context.Context, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "stored credentials are no longer valid"
	}
	data := payload{
		title:    "Deckhand - Login Required",
		message:  fmt.Sprintf("🔑 %s\nRun: deckhand auth login", reason),
		tags:     []string{"deckhand", "auth", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Deckhand - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"deckhand", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

type noopService struct{}

func (noopService) NotifyJobComplete(context.Context, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error   { return nil }
func (noopService) NotifyAuthRequired(context.Context, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
