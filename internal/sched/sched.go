// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sched provides cooperative delayed-callback schedulers.
//
// Every implementation runs callbacks one at a time on a single logical
// thread, in due-time order. Callbacks never overlap, so code driven by a
// Scheduler may mutate shared UI state without locks.
//
//   - Manual: virtual clock advanced explicitly (tests)
//   - Loop: one goroutine draining a queue (line mode)
//   - Tea: bubbletea tick commands delivered to Update (TUI)
package sched

import "time"

// Scheduler runs fn once after d has elapsed, on the scheduler's thread.
// There is no cancellation; callers guard stale callbacks themselves.
type Scheduler interface {
	After(d time.Duration, fn func())
}
