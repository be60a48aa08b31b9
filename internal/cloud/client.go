// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the upstream chat-completion client used by the relay.
package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/relaychat/internal/model"
)

// Configuration constants for the upstream API.
const (
	// DefaultBaseURL is the SiliconFlow OpenAI-compatible API root.
	DefaultBaseURL = "https://api.siliconflow.cn/v1"

	// DefaultModel is the model requested when none is configured.
	DefaultModel = "THUDM/GLM-4-9B-0414"

	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("upstream API key not configured")

	// ErrTimeout indicates the call did not finish within the client timeout.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrTransport indicates the request could not be delivered or the
	// response could not be read.
	ErrTransport = errors.New("upstream transport error")

	// ErrMalformed indicates a 200 response without usable content.
	ErrMalformed = errors.New("malformed upstream response")
)

// APIError represents a non-200 response from the upstream.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d): %s", e.Status, e.Message)
}

// Kind classifies a completion failure.
type Kind int

const (
	KindNone Kind = iota
	KindTimeout
	KindTransport
	KindStatus
	KindMalformed
	KindNotConfigured
	KindUnknown
)

// String returns the log name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindMalformed:
		return "malformed"
	case KindNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by Client to a Kind.
func Classify(err error) Kind {
	var apiErr *APIError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.As(err, &apiErr):
		return KindStatus
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Sampling holds the fixed sampling parameters sent with every request.
type Sampling struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// DefaultSampling returns the relay's standard sampling configuration.
func DefaultSampling() Sampling {
	return Sampling{
		MaxTokens:   2048,
		Temperature: 0.7,
		TopP:        0.9,
	}
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    []model.Message `json:"messages"`
	Stream      bool            `json:"stream"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p"`
}

// ChatResponse represents a response from the chat completions endpoint.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      model.Message `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for an OpenAI-compatible chat completion API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	sampling   Sampling
	httpClient *http.Client
}

// NewClient creates a client with the given API key and default settings.
// If the key is empty, the client is still created but every call fails
// with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:   strings.TrimSpace(apiKey),
		baseURL:  DefaultBaseURL,
		model:    DefaultModel,
		timeout:  DefaultTimeout,
		sampling: DefaultSampling(),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = strings.TrimRight(url, "/")
	}
	return c
}

// WithModel sets the model identifier.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// WithTimeout sets the per-call timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// WithSampling sets the sampling parameters.
func (c *Client) WithSampling(s Sampling) *Client {
	c.sampling = s
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// IsConfigured returns true if an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key, safe to log.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// Complete sends messages and returns the assistant text of the first choice
// as sent. Blank content is malformed.
func (c *Client) Complete(ctx context.Context, messages []model.Message) (string, error) {
	resp, err := c.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	content := resp.GetContent()
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: no content in choices", ErrMalformed)
	}
	return content, nil
}

// Chat performs one chat completion request. There is no retry.
func (c *Client) Chat(ctx context.Context, messages []model.Message) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      false,
		MaxTokens:   c.sampling.MaxTokens,
		Temperature: c.sampling.Temperature,
		TopP:        c.sampling.TopP,
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, c.baseURL+"/chat/completions", reqBody)
	if err != nil {
		log.Printf("UPSTREAM_FAILED | model=%s kind=%s duration=%v", c.model, Classify(err), time.Since(start))
		return nil, err
	}
	log.Printf("UPSTREAM_OK | model=%s tokens=%d duration=%v", c.model, resp.Usage.TotalTokens, time.Since(start))
	return resp, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// doRequest performs a single HTTP request to the chat completions endpoint.
func (c *Client) doRequest(ctx context.Context, requestURL string, reqBody ChatRequest) (*ChatResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, wrapTransport(ctx, err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, wrapTransport(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrMalformed)
	}
	return &chatResp, nil
}

// wrapTransport tags err as a timeout or a transport failure.
func wrapTransport(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// parseAPIError converts a non-200 response into an *APIError.
func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.Error.Code
		apiErr.Message = parsed.Error.Message
		if apiErr.Message == "" {
			apiErr.Message = parsed.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
