// Package notify posts operational messages to a Slack incoming webhook.
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
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetryMax  = 4
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 10 * time.Second

	// maxRetryAfter caps how long a Retry-After header can hold a worker.
	maxRetryAfter = time.Minute
)

// Message is the webhook payload. Text is the fallback shown in
// notifications; Blocks carry the formatted body.
type Message struct {
	Channel string  `json:"channel,omitempty"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks,omitempty"`
}

// Block is a Slack layout block.
type Block struct {
	Type   string  `json:"type"`
	Text   *Text   `json:"text,omitempty"`
	Fields []*Text `json:"fields,omitempty"`
}

// Text is a Slack text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Section returns a section block with mrkdwn text.
func Section(text string) Block {
	return Block{Type: "section", Text: &Text{Type: "mrkdwn", Text: text}}
}

// Fields returns a section block laying pairs out in two columns.
func Fields(pairs ...string) Block {
	b := Block{Type: "section"}
	for i := 0; i+1 < len(pairs); i += 2 {
		b.Fields = append(b.Fields, &Text{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", pairs[i], pairs[i+1])})
	}
	return b
}

// Config configures a Slack notifier.
type Config struct {
	WebhookURL string
	Channel    string
	RetryMax   int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	HTTPClient *http.Client
}

// Slack posts messages to one webhook, retrying throttled and 5xx replies.
// The wait is the server's Retry-After when sent, else a capped exponential
// delay.
type Slack struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSlack returns a notifier. With an empty webhook URL every Post is a
// logged no-op.
func NewSlack(cfg Config, logger *slog.Logger) *Slack {
	if cfg.RetryMax == 0 {
		cfg.RetryMax = defaultRetryMax
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Slack{cfg: cfg, client: client, logger: logger, sleep: sleepWithContext}
}

// Enabled reports whether a webhook URL is configured.
func (s *Slack) Enabled() bool {
	return s.cfg.WebhookURL != ""
}

// Post sends msg.
func (s *Slack) Post(ctx context.Context, msg Message) error {
	if !s.Enabled() {
		s.logger.Debug("slack: webhook not configured, dropping message", "text", msg.Text)
		return nil
	}
	if msg.Channel == "" {
		msg.Channel = s.cfg.Channel
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay(attempt - 1)
			var se *StatusError
			if errors.As(lastErr, &se) && se.RetryAfter > 0 {
				delay = min(se.RetryAfter, maxRetryAfter)
			}
			s.logger.Warn("slack: retrying webhook", "attempt", attempt, "delay", delay, "error", lastErr)
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = s.send(ctx, body)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("slack webhook failed after %d attempts: %w", s.cfg.RetryMax+1, lastErr)
}

func (s *Slack) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(respBody)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

// StatusError is a non-2xx webhook response. RetryAfter is zero when the
// server did not ask for a wait.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("slack webhook returned %d", e.StatusCode)
	}
	return fmt.Sprintf("slack webhook returned %d: %s", e.StatusCode, e.Body)
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "slack webhook request: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// parseRetryAfter reads a Retry-After value in seconds or as an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func (s *Slack) retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	delay := s.cfg.BaseDelay << attempt
	if delay > s.cfg.MaxDelay || delay <= 0 {
		delay = s.cfg.MaxDelay
	}
	return delay
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
