// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the upstream chat-completion client used by the relay.
//
// The client speaks the OpenAI-compatible /chat/completions protocol and
// defaults to SiliconFlow. Each call is a single attempt bounded by a
// timeout: there is no retry. Failures are classified so the relay can turn
// them into user-facing text.
//
// # Key Types
//
//   - Client: HTTP client for the completion endpoint
//   - Sampling: fixed sampling parameters sent with every request
//   - APIError: non-200 response from the upstream
//   - Kind: failure classification returned by Classify
//
// # Usage
//
//	client := cloud.NewClient(apiKey).
//	    WithModel("THUDM/GLM-4-9B-0414").
//	    WithTimeout(30 * time.Second)
//	text, err := client.Complete(ctx, messages)
//	if err != nil {
//	    switch cloud.Classify(err) {
//	    case cloud.KindTimeout:
//	        // ...
//	    }
//	}
//
// # Security
//
// API keys are never logged. Only a SHA-256 fingerprint is printed.
package cloud
