// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for the relay server and the
// chat client.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - ServerConfig: Listen address, timeouts, CORS origins
//   - UpstreamConfig: Model provider, endpoint, sampling, API key
//   - HistoryConfig: History backend and context window
//   - ClientConfig: Server URL, user ID, timeouts, resource files
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the binaries)
//   - Environment variables (RELAY_*), optionally from a .env file
//   - ~/.relaychat/config.toml
//   - Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Upstream.Timeout()
package config
