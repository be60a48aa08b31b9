// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client provides the HTTP client the chat UI uses to talk to the
// relay server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/relaychat/internal/api"
	"github.com/jeranaias/relaychat/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeTimeout
	ErrTypeConnection
	ErrTypeStatus
	ErrTypeInvalidResponse
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeStatus:
		return "status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ClientError represents a failed call to the relay server.
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ClientError of the same type, so sentinel
// comparisons with errors.Is work on wrapped instances.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type && t.Cause == nil && t.Status == 0
}

// Sentinel errors for easy checking.
var (
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrConnection = &ClientError{Type: ErrTypeConnection, Message: "cannot reach relay server"}
	ErrStatus     = &ClientError{Type: ErrTypeStatus, Message: "relay server error"}
	ErrInvalid    = &ClientError{Type: ErrTypeInvalidResponse, Message: "invalid response from relay server"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultServerURL is where the relay server listens by default.
	DefaultServerURL = "http://localhost:8001"

	// DefaultHealthTimeout bounds GET /health.
	DefaultHealthTimeout = 10 * time.Second

	// DefaultChatTimeout bounds POST /chat.
	DefaultChatTimeout = 60 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 10 * 1024 * 1024
)

// Config holds configuration options for the relay client.
type Config struct {
	// ServerURL is the relay base URL (default: http://localhost:8001).
	ServerURL string

	// UserID is sent with every chat request and names the history.
	UserID string

	// HealthTimeout bounds the connection test (default: 10s).
	HealthTimeout time.Duration

	// ChatTimeout bounds a chat request (default: 60s).
	ChatTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:     DefaultServerURL,
		UserID:        api.DefaultUserID,
		HealthTimeout: DefaultHealthTimeout,
		ChatTimeout:   DefaultChatTimeout,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the relay server. It makes exactly one attempt per call.
//
// The Client is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a client. Zero fields in cfg take their defaults.
func New(cfg *Config) *Client {
	c := *DefaultConfig()
	if cfg != nil {
		if cfg.ServerURL != "" {
			c.ServerURL = cfg.ServerURL
		}
		if cfg.UserID != "" {
			c.UserID = cfg.UserID
		}
		if cfg.HealthTimeout > 0 {
			c.HealthTimeout = cfg.HealthTimeout
		}
		if cfg.ChatTimeout > 0 {
			c.ChatTimeout = cfg.ChatTimeout
		}
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")

	return &Client{
		config:     c,
		httpClient: &http.Client{},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// ServerURL returns the relay base URL.
func (c *Client) ServerURL() string {
	return c.config.ServerURL
}

// UserID returns the user ID sent with chat requests.
func (c *Client) UserID() string {
	return c.config.UserID
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Health performs the connection test against GET /health.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	if out.Status != api.StatusHealthy {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: fmt.Sprintf("server reported status %q", out.Status)}
	}
	return &out, nil
}

// Chat posts message to /chat and returns the reply text. Upstream failures
// arrive as ordinary replies; only relay failures are errors.
func (c *Client) Chat(ctx context.Context, message string) (*api.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ChatTimeout)
	defer cancel()

	body := api.ChatRequest{Message: message, UserID: c.config.UserID}
	var out api.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches the stored turns for the client's user.
func (c *Client) History(ctx context.Context) ([]model.Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	var out api.HistoryResponse
	if err := c.do(ctx, http.MethodGet, c.historyPath(), nil, &out); err != nil {
		return nil, err
	}
	if out.History == nil {
		out.History = []model.Turn{}
	}
	return out.History, nil
}

// ClearHistory drops the stored turns for the client's user.
func (c *Client) ClearHistory(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	var out api.ClearResponse
	return c.do(ctx, http.MethodDelete, c.historyPath(), nil, &out)
}

func (c *Client) historyPath() string {
	return "/history/" + url.PathEscape(c.config.UserID)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs one JSON request and decodes a 200 response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.ServerURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return classifyTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeStatus,
			Status:  resp.StatusCode,
			Message: statusMessage(resp.StatusCode, data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// statusMessage renders a non-200 response, preferring the server's detail.
func statusMessage(status int, body []byte) string {
	var e api.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		return fmt.Sprintf("server error %d: %s", status, e.Detail)
	}
	return fmt.Sprintf("server error %d", status)
}

// classifyTransport maps a transport failure to a ClientError.
func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: "cannot reach relay server", Cause: err}
}
