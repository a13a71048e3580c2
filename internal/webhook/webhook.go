package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/internal/logging"
	"github.com/ogdean/talkcut/pkg/models"
)

// Webhook event names
const (
	EventJobCompleted  = "job.completed"
	EventJobFailed     = "job.failed"
	EventVideoUploaded = "video.uploaded"
)

// Event is the payload delivered to the configured callback URL
type Event struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Notifier delivers job lifecycle events to a configured callback URL.
// Payloads are signed with HMAC-SHA256 when a secret is set.
type Notifier struct {
	cfg    config.WebhookConfig
	client *http.Client
	logger *logging.Logger
}

// NewNotifier creates a webhook notifier. An empty URL disables delivery.
func NewNotifier(cfg config.WebhookConfig, logger *logging.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Enabled reports whether a callback URL is configured
func (n *Notifier) Enabled() bool {
	return n.cfg.URL != ""
}

// Notify delivers an event, retrying transient failures with backoff
func (n *Notifier) Notify(ctx context.Context, event string, data interface{}) error {
	if !n.Enabled() {
		return nil
	}

	payload, err := json.Marshal(Event{
		ID:        uuid.New().String(),
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	backoff := []time.Duration{0, 1 * time.Second, 5 * time.Second}

	var lastErr error
	for attempt, delay := range backoff {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = n.deliver(ctx, event, payload); lastErr == nil {
			return nil
		}
		n.logger.WithField("attempt", attempt+1).ErrorWithErr("Webhook delivery failed", lastErr)
	}

	return fmt.Errorf("webhook delivery exhausted retries: %w", lastErr)
}

func (n *Notifier) deliver(ctx context.Context, event string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Talkcut-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", event)

	if n.cfg.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Signature(payload, n.cfg.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook endpoint returned %d: %s", resp.StatusCode, body)
	}

	return nil
}

// Signature computes the HMAC-SHA256 signature header value for a payload
func Signature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// NotifyJobCompleted delivers a job completion event
func (n *Notifier) NotifyJobCompleted(ctx context.Context, job *models.EditJob) error {
	return n.Notify(ctx, EventJobCompleted, job)
}

// NotifyJobFailed delivers a job failure event
func (n *Notifier) NotifyJobFailed(ctx context.Context, job *models.EditJob) error {
	return n.Notify(ctx, EventJobFailed, job)
}

// NotifyVideoUploaded delivers a video upload event
func (n *Notifier) NotifyVideoUploaded(ctx context.Context, video *models.SourceVideo) error {
	return n.Notify(ctx, EventVideoUploaded, video)
}
