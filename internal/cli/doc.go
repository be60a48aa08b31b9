// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-mode relay client used when the
// full-screen UI cannot run.
//
// A Session runs the chat presenter on a sched.Loop and mirrors its
// transcript to the terminal through a Printer. Input comes from a
// LineSource; LineReader adds editing and saved history via liner.
package cli
