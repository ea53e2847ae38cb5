package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"bbdrop/internal/config"
)

const userAgent = "bbdrop/0.1.0"

// Service defines the notification surface exposed to the workflow manager
// and the CLI. Implementations never fail the caller's workflow; errors are
// returned for logging only.
type Service interface {
	GalleryComplete(ctx context.Context, galleryName, galleryURL string, images int, bytes int64) error
	GalleryIncomplete(ctx context.Context, galleryName string, uploaded, total int) error
	GalleryFailed(ctx context.Context, galleryName string, failed int, cause string) error
	QueueEmpty(ctx context.Context, processed int, duration time.Duration) error
	Error(ctx context.Context, err error, contextLabel string) error
	Test(ctx context.Context) error
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

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		uploads:    cfg.Notifications.Uploads,
		errors:     cfg.Notifications.Errors,
		queueEmpty: cfg.Notifications.QueueEmpty,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	uploads    bool
	errors     bool
	queueEmpty bool
}

func (n *ntfyService) GalleryComplete(ctx context.Context, galleryName, galleryURL string, images int, bytes int64) error {
	if !n.uploads {
		return nil
	}
	galleryName = strings.TrimSpace(galleryName)
	message := fmt.Sprintf("Gallery uploaded: %s (%d images, %s)", galleryName, images, humanize.IBytes(uint64(bytes)))
	if galleryURL = strings.TrimSpace(galleryURL); galleryURL != "" {
		message = fmt.Sprintf("%s\n%s", message, galleryURL)
	}
	data := payload{
		title:   "bbdrop - Gallery Complete",
		message: message,
		tags:    []string{"bbdrop", "gallery", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) GalleryIncomplete(ctx context.Context, galleryName string, uploaded, total int) error {
	if !n.uploads {
		return nil
	}
	galleryName = strings.TrimSpace(galleryName)
	data := payload{
		title:   "bbdrop - Upload Paused",
		message: fmt.Sprintf("Upload stopped: %s (%d of %d images done, resumable)", galleryName, uploaded, total),
		tags:    []string{"bbdrop", "gallery", "incomplete"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) GalleryFailed(ctx context.Context, galleryName string, failed int, cause string) error {
	if !n.errors {
		return nil
	}
	galleryName = strings.TrimSpace(galleryName)
	var message string
	if failed > 0 {
		message = fmt.Sprintf("Upload failed: %s (%d images did not upload)", galleryName, failed)
	} else {
		message = fmt.Sprintf("Upload failed: %s", galleryName)
	}
	if cause = strings.TrimSpace(cause); cause != "" {
		message = fmt.Sprintf("%s\n%s", message, cause)
	}
	data := payload{
		title:    "bbdrop - Upload Failed",
		message:  message,
		tags:     []string{"bbdrop", "gallery", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) QueueEmpty(ctx context.Context, processed int, duration time.Duration) error {
	if !n.queueEmpty {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:   "bbdrop - Queue Empty",
		message: fmt.Sprintf("Queue drained: %d galleries processed in %s", processed, duration),
		tags:    []string{"bbdrop", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) Error(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "bbdrop - Error",
		message:  builder.String(),
		tags:     []string{"bbdrop", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) Test(ctx context.Context) error {
	data := payload{
		title:    "bbdrop - Test",
		message:  "Notification system test",
		tags:     []string{"bbdrop", "test"},
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

func (noopService) GalleryComplete(context.Context, string, string, int, int64) error { return nil }
func (noopService) GalleryIncomplete(context.Context, string, int, int) error         { return nil }
func (noopService) GalleryFailed(context.Context, string, int, string) error          { return nil }
func (noopService) QueueEmpty(context.Context, int, time.Duration) error              { return nil }
func (noopService) Error(context.Context, error, string) error                        { return nil }
func (noopService) Test(context.Context) error                                        { return nil }
