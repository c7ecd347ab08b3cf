// Package llm talks to a local Ollama server to draft and polish resume
// text.
package llm

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
)

var ErrEmptyText = errors.New("text is required")

// Result is the outcome of a generation request as the editor and API see
// it. Every failure is folded into this shape.
type Result struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewResult folds a text/error pair into a Result.
func NewResult(text string, err error) Result {
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Text: text}
}

// Client calls the Ollama generate endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        *slog.Logger

	generateStats *LLMStats
	enhanceStats  *LLMStats
}

func NewClient(baseURL, model string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:           log,
		generateStats: NewLLMStats(time.Hour),
		enhanceStats:  NewLLMStats(time.Hour),
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Generate drafts a markdown resume from the profile text and the user's
// instructions.
func (c *Client) Generate(ctx context.Context, profileText, instructions string) (string, error) {
	if err := ValidateInput("instructions", instructions, MaxInstructionsLen); err != nil {
		return "", err
	}
	if err := ValidateInput("profile", profileText, MaxProfileLen); err != nil {
		return "", err
	}
	if Suspicious(instructions) {
		c.log.Warn("instructions look like a prompt override", "len", len(instructions))
	}

	start := time.Now()
	text, err := c.complete(ctx, BuildGeneratePrompt(profileText, instructions))
	c.generateStats.Record(time.Since(start).Milliseconds())
	if err != nil {
		return "", err
	}
	return CleanGenerated(text), nil
}

// Enhance rewrites a short piece of text as a resume statement. subject
// names what the text is, such as "job achievement"; it defaults to
// "resume description".
func (c *Client) Enhance(ctx context.Context, text, subject string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if err := ValidateInput("text", text, MaxEnhanceLen); err != nil {
		return "", err
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultEnhanceContext
	}

	start := time.Now()
	out, err := c.complete(ctx, BuildEnhancePrompt(text, subject))
	c.enhanceStats.Record(time.Since(start).Milliseconds())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		out = text
	}
	return CleanEnhanced(out), nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", apiResp.Error)
	}
	c.log.Debug("ollama completion",
		"model", c.model,
		"prompt_tokens", EstimateTokens(prompt),
		"reply_tokens", EstimateTokens(apiResp.Response),
	)
	return apiResp.Response, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// StatsReport holds latency aggregates per operation.
type StatsReport struct {
	Generate StatsSnapshot `json:"generate"`
	Enhance  StatsSnapshot `json:"enhance"`
}

func (c *Client) Stats() StatsReport {
	return StatsReport{
		Generate: c.generateStats.Snapshot(),
		Enhance:  c.enhanceStats.Snapshot(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err is, or wraps, a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
