// Package slack is a minimal Slack surface: a Web API client for posting and
// editing messages, Block Kit types for the messages the bot renders, and the
// webhook handlers that feed events back into the bot.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultBaseURL = "https://slack.com/api"

// MessageRef identifies a posted message for later edits.
type MessageRef struct {
	Channel   string
	Timestamp string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is a Slack Web API client covering chat.postMessage and chat.update.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Slack Web API client authenticated with a bot token.
func NewClient(token string, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostMessage posts a message to channel and returns a reference to it.
// text is the notification fallback shown outside the block rendering.
func (c *Client) PostMessage(ctx context.Context, channel, text string, blocks []Block) (MessageRef, error) {
	payload := map[string]any{
		"channel": channel,
		"text":    text,
		"blocks":  blocks,
	}

	resp, err := c.call(ctx, "chat.postMessage", payload)
	if err != nil {
		return MessageRef{}, err
	}
	if resp.TS == "" {
		return MessageRef{}, fmt.Errorf("chat.postMessage: missing message ts")
	}

	ref := MessageRef{Channel: channel, Timestamp: resp.TS}
	if resp.Channel != "" {
		ref.Channel = resp.Channel
	}
	return ref, nil
}

// UpdateMessage replaces the content of a previously posted message.
func (c *Client) UpdateMessage(ctx context.Context, ref MessageRef, text string, blocks []Block) error {
	payload := map[string]any{
		"channel": ref.Channel,
		"ts":      ref.Timestamp,
		"text":    text,
		"blocks":  blocks,
	}

	_, err := c.call(ctx, "chat.update", payload)
	return err
}

type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
}

// call posts to a Web API method, retrying rate limits and transient server
// errors with exponential backoff.
func (c *Client) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", method, err)
	}

	var result *apiResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		res, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError {
			io.Copy(io.Discard, res.Body)
			c.logger.Warn("slack api retryable failure",
				slog.String("method", method),
				slog.Int("status", res.StatusCode))
			return fmt.Errorf("%s: status %d", method, res.StatusCode)
		}

		var resp apiResponse
		if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
			return backoff.Permanent(fmt.Errorf("%s: decode response: %w", method, err))
		}
		if !resp.OK {
			if resp.Error == "" {
				resp.Error = "unknown error"
			}
			return backoff.Permanent(fmt.Errorf("%s: slack api error: %s", method, resp.Error))
		}

		result = &resp
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return result, nil
}
