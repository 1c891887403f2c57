// Package webhook delivers threshold-crossing notifications to the
// configured outbound endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
)

const DefaultTimeout = 10 * time.Second

// Client implements interfaces.NotificationSender over a JSON webhook.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new webhook client. An empty URL produces a client
// whose Send is a logged no-op.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts the payload to the webhook. Failures are returned to the
// caller for logging; the pipeline never retries delivery inline.
func (c *Client) Send(ctx context.Context, payload *interfaces.NotificationPayload) error {
	if c.url == "" {
		c.logger.Debug().Str("ticker", payload.Ticker).Msg("No webhook configured, skipping delivery")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Debug().
		Str("ticker", payload.Ticker).
		Str("recommendation", payload.Recommendation).
		Msg("Notification delivered")
	return nil
}

// Compile-time check
var _ interfaces.NotificationSender = (*Client)(nil)
