// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the relay's HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jeranaias/relaychat/internal/api"
	"github.com/jeranaias/relaychat/internal/relay"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultHost is the default listen address.
	DefaultHost = "0.0.0.0"

	// DefaultPort is the default port for the HTTP server.
	DefaultPort = 8001

	// MaxMessageLength is the maximum message length in runes.
	MaxMessageLength = 100000

	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the server version.
	Version = "1.0.0"

	// RootMessage is reported by GET /.
	RootMessage = "Changzheng model service is running"

	internalErrorDetail = "internal server error"
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks HTTP-level usage statistics.
type ServerStats struct {
	totalRequests atomic.Int64
	serverErrors  atomic.Int64
	StartTime     time.Time
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

// RecordRequest records a finished request with its status code.
func (s *ServerStats) RecordRequest(status int) {
	s.totalRequests.Add(1)
	if status >= 500 {
		s.serverErrors.Add(1)
	}
}

// TotalRequests returns the number of requests served.
func (s *ServerStats) TotalRequests() int64 {
	return s.totalRequests.Load()
}

// ServerErrors returns the number of 5xx responses.
func (s *ServerStats) ServerErrors() int64 {
	return s.serverErrors.Load()
}

// Uptime returns the server uptime duration.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the relay HTTP server.
type Server struct {
	host   string
	port   int
	relay  *relay.Service
	stats  *ServerStats
	cors   *CORSConfig
	server *http.Server

	readTimeout  time.Duration
	writeTimeout time.Duration

	mu sync.RWMutex
}

// NewServer creates a Server for svc on the default address.
func NewServer(svc *relay.Service) *Server {
	return &Server{
		host:         DefaultHost,
		port:         DefaultPort,
		relay:        svc,
		stats:        NewServerStats(),
		cors:         DefaultCORSConfig(),
		readTimeout:  30 * time.Second,
		writeTimeout: 120 * time.Second,
	}
}

// WithAddr sets the listen host and port. Zero values keep the defaults.
func (s *Server) WithAddr(host string, port int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if host != "" {
		s.host = host
	}
	if port != 0 {
		s.port = port
	}
	return s
}

// WithCORS sets the CORS configuration.
func (s *Server) WithCORS(cfg *CORSConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg != nil {
		s.cors = cfg
	}
	return s
}

// WithTimeouts sets the HTTP read and write timeouts.
func (s *Server) WithTimeouts(read, write time.Duration) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if read > 0 {
		s.readTimeout = read
	}
	if write > 0 {
		s.writeTimeout = write
	}
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Stats returns the server statistics.
func (s *Server) Stats() *ServerStats {
	return s.stats
}

// ============================================================================
// ROUTES
// ============================================================================

// Handler returns the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	cors := s.cors
	s.mu.RUnlock()

	r := chi.NewRouter()
	r.Use(Chain(
		chiMiddleware.RealIP,
		RequestIDMiddleware(),
		LoggingMiddleware(log.Default(), s.stats),
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		CORSMiddleware(cors),
	))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/chat", s.handleChat)
	r.Get("/history/{user_id}", s.handleGetHistory)
	r.Delete("/history/{user_id}", s.handleClearHistory)
	r.Get("/stats", s.handleStats)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.RootResponse{
		Message: RootMessage,
		Status:  api.StatusOnline,
	})
}

// handleHealth handles GET /health. It reports on the relay only.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:  api.StatusHealthy,
		Service: api.ServiceName,
	})
}

// handleChat handles POST /chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		log.Printf("CHAT_BAD_REQUEST | request_id=%s error=%v", RequestIDFromContext(r.Context()), err)
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("message exceeds maximum length of %d", MaxMessageLength))
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = api.DefaultUserID
	}

	log.Printf("CHAT_REQUEST | request_id=%s user=%s chars=%d",
		RequestIDFromContext(r.Context()), userID, utf8.RuneCountInString(req.Message))

	reply, err := s.relay.Chat(r.Context(), userID, req.Message)
	if err != nil {
		log.Printf("CHAT_ERROR | request_id=%s user=%s error=%v", RequestIDFromContext(r.Context()), userID, err)
		writeError(w, http.StatusInternalServerError, internalErrorDetail)
		return
	}
	if reply.Degraded() {
		log.Printf("CHAT_DEGRADED | request_id=%s user=%s kind=%s", RequestIDFromContext(r.Context()), userID, reply.Failure)
	}

	writeJSON(w, http.StatusOK, api.ChatResponse{
		Response:  reply.Text,
		Status:    api.StatusSuccess,
		Timestamp: api.FormatTimestamp(reply.CreatedAt),
	})
}

// handleGetHistory handles GET /history/{user_id}.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	turns, err := s.relay.History(r.Context(), userID)
	if err != nil {
		log.Printf("HISTORY_ERROR | user=%s error=%v", userID, err)
		writeError(w, http.StatusInternalServerError, internalErrorDetail)
		return
	}

	writeJSON(w, http.StatusOK, api.HistoryResponse{
		History: turns,
		Status:  api.StatusSuccess,
	})
}

// handleClearHistory handles DELETE /history/{user_id}.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if err := s.relay.Clear(r.Context(), userID); err != nil {
		log.Printf("HISTORY_CLEAR_ERROR | user=%s error=%v", userID, err)
		writeError(w, http.StatusInternalServerError, internalErrorDetail)
		return
	}
	log.Printf("HISTORY_CLEARED | user=%s client_ip=%s", userID, r.RemoteAddr)

	writeJSON(w, http.StatusOK, api.ClearResponse{
		Message: fmt.Sprintf("history for user %s cleared", userID),
		Status:  api.StatusSuccess,
	})
}

// userIDParam returns the decoded {user_id} segment. chi matches on the raw
// path when the request has one, so escaped IDs ("team%2Falice") arrive
// still escaped.
func userIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "user_id")
	if r.URL.RawPath == "" {
		return userID, true
	}
	decoded, err := url.PathUnescape(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return "", false
	}
	return decoded, true
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	users, err := s.relay.Users(r.Context())
	if err != nil {
		log.Printf("STATS_ERROR | error=%v", err)
		writeError(w, http.StatusInternalServerError, internalErrorDetail)
		return
	}

	relayStats := s.relay.Stats()
	writeJSON(w, http.StatusOK, api.StatsResponse{
		HTTPRequests:     s.stats.TotalRequests(),
		ServerErrors:     s.stats.ServerErrors(),
		ChatRequests:     relayStats.ChatRequests,
		UpstreamFailures: relayStats.UpstreamFailures,
		ActiveUsers:      users,
		UptimeSeconds:    int64(s.stats.Uptime().Seconds()),
		Version:          Version,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve serves HTTP on ln and blocks until the server stops.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s version=%s", ln.Addr(), Version)
	return srv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown requests=%d", s.stats.TotalRequests())
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("RESPONSE_ENCODE_ERROR | status=%d error=%v", status, err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, api.ErrorResponse{Detail: detail})
}
