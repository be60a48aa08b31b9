// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sched

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// FireMsg is delivered to a bubbletea Update when a Tea task falls due.
// Update must call Run.
type FireMsg struct {
	fn func()
}

// Run executes the scheduled callback.
func (m FireMsg) Run() {
	if m.fn != nil {
		m.fn()
	}
}

// Tea is a Scheduler for bubbletea programs. After records a tick command;
// the model returns Drain() from Update so the runtime starts the timers,
// and the resulting FireMsg runs on the Update goroutine.
type Tea struct {
	mu      sync.Mutex
	pending []tea.Cmd
}

// NewTea returns an empty Tea scheduler.
func NewTea() *Tea {
	return &Tea{}
}

// After queues a tick command that fires fn after d.
func (t *Tea) After(d time.Duration, fn func()) {
	cmd := func() tea.Msg { return FireMsg{fn: fn} }
	if d > 0 {
		cmd = tea.Tick(d, func(time.Time) tea.Msg { return FireMsg{fn: fn} })
	}

	t.mu.Lock()
	t.pending = append(t.pending, cmd)
	t.mu.Unlock()
}

// Drain returns every queued command as one batch, or nil if none.
func (t *Tea) Drain() tea.Cmd {
	t.mu.Lock()
	cmds := t.pending
	t.pending = nil
	t.mu.Unlock()

	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}

// Pending returns the number of commands waiting to be drained.
func (t *Tea) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
