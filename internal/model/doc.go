// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the relay server and
// the chat client.
//
// # Key Types
//
//   - Turn: one user message plus the assistant reply it produced
//   - Message: a single role-tagged entry of an upstream prompt
//   - Role: message role enumeration (user, assistant, system)
//
// # Usage
//
// Record a completed exchange:
//
//	turn := model.NewTurn("hello", "Hi! How can I help?")
//
// Flatten a window of turns into prompt messages:
//
//	msgs := model.FlattenTurns(recent)
package model
