// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sched

import (
	"sync"
	"time"
)

// maxRunAllSteps bounds RunAll against self-rescheduling callbacks.
const maxRunAllSteps = 1_000_000

type manualTask struct {
	due time.Duration
	seq uint64
	fn  func()
}

// Manual is a Scheduler driven by a virtual clock. Nothing runs until the
// clock is advanced. Tasks due at the same instant run in scheduling order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks []manualTask
}

// NewManual returns a Manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// After schedules fn at now+d. Negative delays count as zero.
func (m *Manual) After(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.tasks = append(m.tasks, manualTask{due: m.now + d, seq: m.seq, fn: fn})
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of scheduled tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// NextDue returns the due time of the earliest task.
func (m *Manual) NextDue() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return 0, false
	}
	return m.tasks[m.earliest()].due, true
}

// Advance moves the clock forward by d, running every task that falls due,
// including tasks scheduled by those tasks. It returns the number run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	ran := 0
	for m.step(target) {
		ran++
	}

	m.mu.Lock()
	if m.now < target {
		m.now = target
	}
	m.mu.Unlock()
	return ran
}

// Step runs the earliest task, moving the clock to its due time.
func (m *Manual) Step() bool {
	due, ok := m.NextDue()
	if !ok {
		return false
	}
	return m.step(due)
}

// RunAll runs tasks until none remain and returns the number run. It stops
// after a large bound if callbacks keep rescheduling themselves.
func (m *Manual) RunAll() int {
	ran := 0
	for ran < maxRunAllSteps && m.Step() {
		ran++
	}
	return ran
}

// step pops and runs the earliest task if it is due at or before limit.
func (m *Manual) step(limit time.Duration) bool {
	m.mu.Lock()
	if len(m.tasks) == 0 {
		m.mu.Unlock()
		return false
	}
	i := m.earliest()
	task := m.tasks[i]
	if task.due > limit {
		m.mu.Unlock()
		return false
	}
	m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
	if task.due > m.now {
		m.now = task.due
	}
	m.mu.Unlock()

	task.fn()
	return true
}

// earliest returns the index of the next task. Caller holds mu.
func (m *Manual) earliest() int {
	best := 0
	for i, t := range m.tasks {
		b := m.tasks[best]
		if t.due < b.due || (t.due == b.due && t.seq < b.seq) {
			best = i
		}
	}
	return best
}
