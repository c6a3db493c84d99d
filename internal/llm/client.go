// Package llm implements a client for an OpenAI-compatible chat
// completions endpoint, plus the ethics-audit call built on top of it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/ethics"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
)

// getLogger returns the service logger, falling back to the default
// logger when logging has not been initialized (tests).
func getLogger() *slog.Logger {
	if logger := logging.ForService("llm"); logger != nil {
		return logger
	}
	return slog.Default().With("service", "llm")
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions override the configured defaults for a single request.
type ChatOptions struct {
	Model          string
	Temperature    *float64
	MaxTokens      int
	ResponseFormat string // e.g. "json_object" to force JSON output
}

// chatRequest is the wire format of a completion request.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// ChatResponse is the decoded response body of a completion request.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage"`
}

// Choice is a single completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TransportError is returned for a non-success HTTP status from the
// endpoint, carrying the response status and body.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chat completion request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client wraps HTTP calls to the configured chat-completions endpoint.
// The HTTP client is exported so tests can swap its transport.
type Client struct {
	Settings   *conf.Settings
	HTTPClient *http.Client
	logger     *slog.Logger
}

// New creates a client from the given settings.
func New(settings *conf.Settings) *Client {
	return &Client{
		Settings:   settings,
		HTTPClient: &http.Client{Timeout: time.Duration(settings.LLM.Timeout) * time.Second},
		logger:     getLogger(),
	}
}

// handleNetworkError classifies a failed request as timeout or network
// failure. The audit job treats both as transient for retry purposes.
func handleNetworkError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.New(fmt.Errorf("request timed out: %w", err)).
			Component("llm").
			Category(errors.CategoryTimeout).
			Build()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New(fmt.Errorf("request timed out: %w", err)).
			Component("llm").
			Category(errors.CategoryTimeout).
			Build()
	}
	return errors.New(fmt.Errorf("network error: %w", err)).
		Component("llm").
		Category(errors.CategoryNetwork).
		Build()
}

// Chat sends a completion request with the given messages. Options
// override the configured model, temperature and token limit. A non-2xx
// response yields a TransportError carrying status and body.
func (c *Client) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error) {
	request := chatRequest{
		Model:       c.Settings.LLM.Model,
		Messages:    messages,
		Temperature: c.Settings.LLM.Temperature,
		MaxTokens:   c.Settings.LLM.MaxTokens,
	}
	if opts != nil {
		if opts.Model != "" {
			request.Model = opts.Model
		}
		if opts.Temperature != nil {
			request.Temperature = *opts.Temperature
		}
		if opts.MaxTokens > 0 {
			request.MaxTokens = opts.MaxTokens
		}
		if opts.ResponseFormat != "" {
			request.ResponseFormat = &responseFormat{Type: opts.ResponseFormat}
		}
	}

	payload, err := json.Marshal(&request)
	if err != nil {
		return nil, errors.New(err).
			Component("llm").
			Category(errors.CategoryLLM).
			Context("operation", "marshal-request").
			Build()
	}

	url := c.Settings.LLM.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.New(err).
			Component("llm").
			Category(errors.CategoryLLM).
			Context("operation", "build-request").
			Build()
	}
	req.Header.Set("Authorization", "Bearer "+c.Settings.LLM.APIKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("chat completion request",
		"model", request.Model,
		"messages_count", len(messages))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Error("chat completion request failed", "error", err)
		return nil, handleNetworkError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, handleNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("chat completion API error",
			"status", resp.StatusCode,
			"body", string(body))
		transportErr := &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
		return nil, errors.New(transportErr).
			Component("llm").
			Category(errors.CategoryHTTP).
			Context("status", resp.StatusCode).
			Build()
	}

	var chatResponse ChatResponse
	if err := json.Unmarshal(body, &chatResponse); err != nil {
		return nil, errors.New(fmt.Errorf("decoding response body: %w", err)).
			Component("llm").
			Category(errors.CategoryLLM).
			Build()
	}

	if chatResponse.Usage != nil {
		c.logger.Info("chat completion response received",
			"model", chatResponse.Model,
			"prompt_tokens", chatResponse.Usage.PromptTokens,
			"completion_tokens", chatResponse.Usage.CompletionTokens)
	} else {
		c.logger.Info("chat completion response received", "model", chatResponse.Model)
	}

	return &chatResponse, nil
}

// ExtractContent returns the first choice's message text, or the empty
// string if absent. It never fails.
func ExtractContent(response *ChatResponse) string {
	if response == nil || len(response.Choices) == 0 {
		return ""
	}
	return response.Choices[0].Message.Content
}

// auditTemperature is fixed low so audits are reproducible.
const auditTemperature = 0.3

// EthicsAudit runs the full audit call for one piece of content: rubric
// system prompt plus user prompt, JSON response mode, decoded into an
// AuditResult. Malformed JSON in the model output yields a zero result,
// which the validator downstream rejects as missing all required fields.
// The raw content string is returned alongside for persistence.
func (c *Client) EthicsAudit(ctx context.Context, content, contentType string) (ethics.AuditResult, string, error) {
	messages := []Message{
		{Role: "system", Content: c.Settings.Ethics.RubricPrompt},
		{Role: "user", Content: ethics.BuildAuditPrompt(content, contentType)},
	}

	temperature := auditTemperature
	response, err := c.Chat(ctx, messages, &ChatOptions{
		Temperature:    &temperature,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return ethics.AuditResult{}, "", err
	}

	raw := ExtractContent(response)
	return ethics.DecodeResult(raw), raw, nil
}

// TestConnection sends a minimal completion request to verify that the
// endpoint and credentials work.
func (c *Client) TestConnection(ctx context.Context) error {
	response, err := c.Chat(ctx, []Message{
		{Role: "user", Content: `Respond with "OK" if you receive this message.`},
	}, &ChatOptions{MaxTokens: 10})
	if err != nil {
		return err
	}
	if ExtractContent(response) == "" {
		return errors.Newf("connection test returned an empty response").
			Component("llm").
			Category(errors.CategoryLLM).
			Build()
	}
	return nil
}
