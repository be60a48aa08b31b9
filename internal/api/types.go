// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api defines the JSON bodies exchanged between the relay server and
// the chat client.
package api

import (
	"time"

	"github.com/jeranaias/relaychat/internal/model"
)

// Status values used in response bodies.
const (
	StatusOnline  = "online"
	StatusHealthy = "healthy"
	StatusSuccess = "success"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "ai-model-server"

// DefaultUserID is used when a chat request omits user_id.
const DefaultUserID = "default"

// RootResponse is returned by GET /.
type RootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Response  string `json:"response"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse is returned by GET /history/{user_id}.
type HistoryResponse struct {
	History []model.Turn `json:"history"`
	Status  string       `json:"status"`
}

// ClearResponse is returned by DELETE /history/{user_id}.
type ClearResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	HTTPRequests     int64  `json:"http_requests"`
	ServerErrors     int64  `json:"server_errors"`
	ChatRequests     int64  `json:"chat_requests"`
	UpstreamFailures int64  `json:"upstream_failures"`
	ActiveUsers      int    `json:"active_users"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	Version          string `json:"version"`
}

// ErrorResponse is returned with 4xx and 5xx statuses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// FormatTimestamp renders t the way chat responses carry it.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
