// Package assistant generates personalized birthday messages through the
// OpenAI chat-completions API.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tiktoken-go/tokenizer"

	"github.com/scienta/skjera/internal/directory"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	systemPrompt = "You are the office birthday bot. Write a short, warm and " +
		"slightly playful birthday greeting for the employee described by the " +
		"user. Two or three sentences, no hashtags, suitable for a company-wide " +
		"Slack channel."

	maxCompletionTokens = 300
)

// ErrNoBirthDate indicates the employee has no date of birth on record, so no
// age-aware message can be generated.
var ErrNoBirthDate = errors.New("employee has no date of birth set")

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

// WithModel sets the model used for generation.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// Client is a hand-rolled OpenAI chat-completions client; only the single
// endpoint the bot needs.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
	codec      tokenizer.Codec
}

// NewClient creates an assistant client.
func NewClient(apiKey string, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Best-effort prompt accounting; generation works without it.
	codec, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		logger.Warn("tokenizer unavailable, skipping prompt accounting",
			slog.String("error", err.Error()))
	} else {
		c.codec = codec
	}

	return c
}

// GenerateMessage produces a birthday greeting for the employee. The
// employee's age is computed from their date of birth; a missing date of
// birth is an error.
func (c *Client) GenerateMessage(ctx context.Context, e directory.Employee) (string, error) {
	if e.DOB == nil {
		return "", ErrNoBirthDate
	}

	age := ageOn(time.Now().UTC(), e.DOB.Time)
	prompt := fmt.Sprintf("It is %s's birthday today! They are turning %d.", e.Name, age)

	if c.codec != nil {
		if count, err := c.codec.Count(systemPrompt + prompt); err == nil {
			c.logger.Debug("assistant prompt",
				slog.String("employee", e.Name),
				slog.Int("prompt_tokens", count))
		}
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxCompletionTokens,
	}

	resp, err := c.createCompletion(ctx, &req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	message := strings.TrimSpace(resp.Choices[0].Message.Content)
	if message == "" {
		return "", fmt.Errorf("chat completion returned empty message")
	}
	return message, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// createCompletion posts the request, retrying rate limits and transient
// server errors with exponential backoff.
func (c *Client) createCompletion(ctx context.Context, req *chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result *chatResponse
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		res, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		respBody, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError {
			c.logger.Warn("assistant retryable failure", slog.Int("status", res.StatusCode))
			return fmt.Errorf("API error (status %d)", res.StatusCode)
		}
		if res.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("API error (status %d): %s", res.StatusCode, string(respBody)))
		}

		var resp chatResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to unmarshal response: %w", err))
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

// ageOn returns the age someone born on dob turns on their birthday in the
// year of now (matching how the greeting is phrased on the day itself).
func ageOn(now, dob time.Time) int {
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	return age
}
