// Package notify delivers confirmation and verification e-mails through a
// webhook, falling back to a transactional e-mail form endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrDeliveryFailed is returned when neither the webhook nor the fallback accepted a message.
var ErrDeliveryFailed = errors.New("message delivery failed")

// Config holds the delivery endpoints.
type Config struct {
	WebhookURL  string
	FallbackURL string
	Timeout     time.Duration
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Webhook posts messages to the primary webhook, then once to the fallback.
type Webhook struct {
	webhookURL  string
	fallbackURL string
	http        *http.Client
	log         *slog.Logger
	now         func() time.Time
}

// NewWebhook creates a new webhook sender
func NewWebhook(cfg Config, log *slog.Logger) *Webhook {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		webhookURL:  cfg.WebhookURL,
		fallbackURL: cfg.FallbackURL,
		http:        &http.Client{Timeout: timeout},
		log:         log,
		now:         time.Now,
	}
}

type webhookPayload struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
	Type             Kind   `json:"type"`
	Timestamp        string `json:"timestamp"`
	Subject          string `json:"subject"`
	Message          string `json:"message"`
	Name             string `json:"name,omitempty"`
	Reference        string `json:"reference,omitempty"`
}

type fallbackPayload struct {
	Subject          string `json:"_subject"`
	ReplyTo          string `json:"_replyto"`
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
	Message          string `json:"message"`
	Type             Kind   `json:"type"`
	Timestamp        string `json:"timestamp"`
}

// Send delivers msg. There is no retry beyond the single fallback attempt.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	const op = "Webhook.Send"

	subject, body, err := Render(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ts := w.now().UTC().Format(time.RFC3339)

	primaryErr := w.post(ctx, w.webhookURL, webhookPayload{
		Email:            msg.To,
		VerificationCode: msg.Code,
		Type:             msg.Kind,
		Timestamp:        ts,
		Subject:          subject,
		Message:          body,
		Name:             msg.Name,
		Reference:        msg.Reference,
	})
	if primaryErr == nil {
		w.log.Info("message delivered", "type", msg.Kind, "channel", "webhook")
		return nil
	}
	w.log.Warn("webhook delivery failed, using fallback", "type", msg.Kind, "error", primaryErr)

	fallbackErr := w.post(ctx, w.fallbackURL, fallbackPayload{
		Subject:          subject,
		ReplyTo:          msg.To,
		Email:            msg.To,
		VerificationCode: msg.Code,
		Message:          body,
		Type:             msg.Kind,
		Timestamp:        ts,
	})
	if fallbackErr == nil {
		w.log.Info("message delivered", "type", msg.Kind, "channel", "fallback")
		return nil
	}

	w.log.Error("message delivery failed", "type", msg.Kind, "error", fallbackErr)
	return fmt.Errorf("%s: %w", op, errors.Join(ErrDeliveryFailed,
		fmt.Errorf("webhook: %w", primaryErr),
		fmt.Errorf("fallback: %w", fallbackErr),
	))
}

func (w *Webhook) post(ctx context.Context, url string, payload any) error {
	if url == "" {
		return errors.New("endpoint not configured")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(text))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
