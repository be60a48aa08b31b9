// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the relay's HTTP API.
//
// # Endpoints
//
//   - GET    /                   - Service status
//   - GET    /health             - Liveness check (never consults the upstream)
//   - POST   /chat               - Relay a message to the upstream model
//   - GET    /history/{user_id}  - Dump a user's stored turns
//   - DELETE /history/{user_id}  - Drop a user's stored turns
//   - GET    /stats              - Usage statistics
//
// Upstream failures are folded into a normal 200 chat response by the relay
// package. Only malformed requests (400) and internal failures (500) produce
// error statuses, both with a {"detail": "..."} body.
//
// # Middleware
//
//   - Panic recovery returning a JSON 500
//   - Request IDs (X-Request-Id)
//   - Security headers
//   - Request logging with timing information
//   - CORS (all origins by default)
//
// # Usage
//
//	svc := relay.NewService(store, completer, relay.Options{})
//	srv := server.NewServer(svc).WithAddr("0.0.0.0", 8001)
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//		log.Fatal(err)
//	}
package server
