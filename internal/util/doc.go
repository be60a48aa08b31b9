// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small string and file helpers shared by the relay
// server and the chat client.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth, FitWidth: terminal-cell aware truncation and padding
//   - FitBlock, BlockSize: fixed-size layout of multi-line ASCII art
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	status := util.TruncateWidth(text, 40)
//	frame := util.FitBlock(raw, 24, 12)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
