package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	svix "github.com/standard-webhooks/standard-webhooks/libraries/go"

	"github.com/Notifuse/designer/pkg/logger"
)

const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"

	defaultMaxAttempts = 3
)

// Event is the JSON envelope posted to the endpoint
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DeliveryError reports a non-2xx answer from the endpoint
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Sender signs events with the Standard Webhooks scheme and posts them
type Sender struct {
	url         string
	wh          *svix.Webhook
	client      *http.Client
	logger      logger.Logger
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// Option configures a Sender
type Option func(*Sender)

// WithMaxAttempts bounds delivery attempts for 5xx answers and transport errors
func WithMaxAttempts(n int) Option {
	return func(s *Sender) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts, doubled after each one
func WithBackoff(d time.Duration) Option {
	return func(s *Sender) { s.backoff = d }
}

// NewSender creates a sender for url. secret is base64, optionally "whsec_" prefixed.
func NewSender(url, secret string, client *http.Client, log logger.Logger, opts ...Option) (*Sender, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	s := &Sender{
		url:         url,
		wh:          wh,
		client:      client,
		logger:      log,
		maxAttempts: defaultMaxAttempts,
		backoff:     500 * time.Millisecond,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send posts eventType with data and returns the message id
func (s *Sender) Send(ctx context.Context, eventType string, data interface{}) (string, error) {
	now := s.now()
	payload, err := json.Marshal(Event{Type: eventType, Timestamp: now.UTC(), Data: data})
	if err != nil {
		return "", fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	msgID := "msg_" + uuid.NewString()
	signature, err := s.wh.Sign(msgID, now, payload)
	if err != nil {
		return "", fmt.Errorf("failed to sign webhook: %w", err)
	}

	delay := s.backoff
	for attempt := 1; ; attempt++ {
		err = s.post(ctx, msgID, now, signature, payload)
		if err == nil {
			s.logger.WithFields(map[string]interface{}{
				"event":   eventType,
				"id":      msgID,
				"attempt": attempt,
			}).Info("Webhook delivered")
			return msgID, nil
		}

		if !retryable(err) || attempt >= s.maxAttempts {
			return msgID, err
		}
		s.logger.WithFields(map[string]interface{}{
			"event":   eventType,
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Webhook delivery failed, retrying")

		select {
		case <-ctx.Done():
			return msgID, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (s *Sender) post(ctx context.Context, msgID string, ts time.Time, signature string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderID, msgID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	req.Header.Set(HeaderSignature, signature)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func retryable(err error) bool {
	if de, ok := err.(*DeliveryError); ok {
		return de.StatusCode >= 500 || de.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// Verify checks the signature headers of a received webhook
func Verify(secret string, payload []byte, headers http.Header) error {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return fmt.Errorf("invalid webhook secret: %w", err)
	}
	if err := wh.Verify(payload, headers); err != nil {
		return fmt.Errorf("signature validation failed: %w", err)
	}
	return nil
}
