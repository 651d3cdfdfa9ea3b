// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/routerchat/internal/model"
)

// Configuration constants for the OpenRouter API.
const (
	// DefaultBaseURL is the base URL for the OpenRouter API.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultReferer is sent as HTTP-Referer to identify the app.
	DefaultReferer = "http://localhost:3000"

	// DefaultTitle is sent as X-Title to identify the app.
	DefaultTitle = "routerchat"

	// DefaultTestMaxTokens caps the reply of a key check.
	DefaultTestMaxTokens = 5

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// Version is reported in the User-Agent header. It is set by main.
var Version = "dev"

// ChatMessage represents a single message in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// FromMessages converts a session log to the wire format.
func FromMessages(msgs []model.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	Stream    *bool         `json:"stream,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// apiError is the error object OpenRouter embeds in a response body.
type apiError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

// ChatResponse represents a response from the chat completions endpoint.
// Choices and Error are pointers so a missing field can be told apart from
// an empty one.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      *ChatMessage `json:"message"`
		FinishReason string       `json:"finish_reason"`
	} `json:"choices"`
	Error  *apiError `json:"error"`
	Detail string    `json:"detail"`
}

// ModelInfo is an entry of the remote model catalogue.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
}

type modelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// Client talks to the OpenRouter API. It is safe for concurrent use; the
// With* setters are meant to be called before first use.
type Client struct {
	baseURL       string
	referer       string
	title         string
	testMaxTokens int
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a client with default settings.
func NewClient() *Client {
	return &Client{
		baseURL:       DefaultBaseURL,
		referer:       DefaultReferer,
		title:         DefaultTitle,
		testMaxTokens: DefaultTestMaxTokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithReferer sets the HTTP-Referer header value.
func (c *Client) WithReferer(referer string) *Client {
	c.referer = referer
	return c
}

// WithTitle sets the X-Title header value.
func (c *Client) WithTitle(title string) *Client {
	c.title = title
	return c
}

// WithTestMaxTokens sets max_tokens for key checks.
func (c *Client) WithTestMaxTokens(n int) *Client {
	if n > 0 {
		c.testMaxTokens = n
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithLogger sets the logger used for request lines.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete sends the conversation and returns the first choice's content.
// It makes exactly one request. Failures are returned as *CompletionError.
func (c *Client) Complete(ctx context.Context, secretKey, modelID string, messages []ChatMessage) (string, error) {
	if strings.TrimSpace(secretKey) == "" {
		return "", model.InvalidArgumentf("secret key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		return "", model.InvalidArgumentf("model is required")
	}

	status, body, err := c.post(ctx, secretKey, ChatRequest{Model: modelID, Messages: messages})
	if err != nil {
		return "", &CompletionError{Detail: err.Error(), Err: err}
	}
	if status < 200 || status > 299 {
		return "", httpError(status, body)
	}

	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &CompletionError{Status: status, Detail: "invalid response structure", Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		if resp.Error != nil {
			detail := resp.Error.Message
			if detail == "" {
				detail = "invalid response structure despite OK status"
			}
			return "", &CompletionError{Status: status, Detail: detail}
		}
		return "", &CompletionError{Status: status, Detail: "invalid response structure"}
	}
	return resp.Choices[0].Message.Content, nil
}

// Test checks whether secretKey is accepted by sending a minimal prompt to
// modelID. Any 2xx response counts as success; every failure is false.
func (c *Client) Test(ctx context.Context, secretKey, modelID string) bool {
	if strings.TrimSpace(secretKey) == "" || strings.TrimSpace(modelID) == "" {
		return false
	}
	stream := false
	status, _, err := c.post(ctx, secretKey, ChatRequest{
		Model:     modelID,
		Messages:  []ChatMessage{NewUserMessage("Hi")},
		Stream:    &stream,
		MaxTokens: c.testMaxTokens,
	})
	if err != nil {
		c.logger.Debug("key check failed", "key", Fingerprint(secretKey), "error", err)
		return false
	}
	return status >= 200 && status <= 299
}

// ListModels fetches the remote model catalogue.
func (c *Client) ListModels(ctx context.Context, secretKey string) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, secretKey)

	status, body, err := c.do(req, secretKey)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, httpError(status, body)
	}
	var resp modelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse models: %w", err)
	}
	return resp.Data, nil
}

// post marshals and sends a chat request, returning the status and body.
func (c *Client) post(ctx context.Context, secretKey string, reqBody ChatRequest) (int, []byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, secretKey)
	return c.do(req, secretKey)
}

// do performs the request and reads the body through the size limit.
func (c *Client) do(req *http.Request, secretKey string) (int, []byte, error) {
	start := time.Now()
	c.logger.Debug("api request", "method", req.Method, "path", req.URL.Path, "key", Fingerprint(secretKey))

	resp, err := c.httpClient.Do(req)

	// SECURITY: Drop the Authorization header so the request can't leak it later
	req.Header.Del("Authorization")

	if err != nil {
		c.logger.Warn("api request failed", "path", req.URL.Path, "error", err)
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	c.logger.Info("api response", "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start).Round(time.Millisecond))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// setHeaders sets the headers OpenRouter expects on every request.
func (c *Client) setHeaders(req *http.Request, secretKey string) {
	req.Header.Set("Authorization", "Bearer "+secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "routerchat/"+Version)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// Fingerprint returns a short SHA-256 based identifier for a secret, safe
// for logs.
func Fingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:4])
}
