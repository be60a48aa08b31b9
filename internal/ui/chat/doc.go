// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat window of the relay client.
//
// The Presenter owns the transcript and drives the reveal renderer and the
// thinking indicator through a sched.Scheduler. It has no terminal code, so
// the Bubble Tea Model in this package and the line-mode REPL in
// internal/cli share it.
//
// # Key Types
//
//   - Presenter: entry headers, waiting state, reply reveal, errors
//   - Model: Bubble Tea model with header, avatar panel, transcript viewport,
//     input line and status bar
//   - KeyMap: Enter send, C-t test connection, C-l clear, Esc/C-c quit
//
// # Threading
//
// Network calls run as tea.Cmd goroutines and come back as messages. Timed
// reveal and indicator steps are queued on a sched.Tea and run when their
// sched.FireMsg reaches Update, so the transcript is only touched from
// Update.
//
// # Commands
//
//	/clear    clear the local transcript
//	/reset    clear the transcript and the server-side history
//	/history  show the server-side history (rendered with glamour)
//	/help     list commands
package chat
