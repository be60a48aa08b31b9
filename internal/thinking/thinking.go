// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package thinking animates the placeholder shown while a reply is pending.
//
// The indicator remembers a transcript anchor and rewrites its own text in
// place on every frame. Stop removes the text entirely.
package thinking

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/relaychat/internal/sched"
	"github.com/jeranaias/relaychat/internal/transcript"
)

// DefaultInterval is the time between frames.
const DefaultInterval = 400 * time.Millisecond

// DefaultIcons cycle one per frame.
var DefaultIcons = []string{"🤔", "💭", "🧠", "⚡"}

// MaxDots is the longest run of trailing dots.
const MaxDots = 3

// Indicator is the thinking animation. All methods must be called on the
// scheduler's thread.
type Indicator struct {
	sched    sched.Scheduler
	out      *transcript.Transcript
	label    string
	icons    []string
	interval time.Duration

	active bool
	anchor *transcript.Anchor
	gen    uint64
	frame  int
	dots   int
}

// Option configures an Indicator.
type Option func(*Indicator)

// WithInterval overrides the frame interval.
func WithInterval(d time.Duration) Option {
	return func(i *Indicator) {
		if d > 0 {
			i.interval = d
		}
	}
}

// WithIcons overrides the icon cycle.
func WithIcons(icons ...string) Option {
	return func(i *Indicator) {
		if len(icons) > 0 {
			i.icons = icons
		}
	}
}

// New creates an indicator. label names who is thinking, e.g. the
// assistant's display name.
func New(s sched.Scheduler, out *transcript.Transcript, label string, opts ...Option) *Indicator {
	i := &Indicator{
		sched:    s,
		out:      out,
		label:    label,
		icons:    DefaultIcons,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Start begins the animation at the end of the transcript. It is a no-op if
// the indicator is already active.
func (i *Indicator) Start() {
	if i.active {
		return
	}
	i.active = true
	i.gen++
	i.frame = 0
	i.dots = 0

	a := i.out.Mark()
	i.anchor = &a
	i.draw()
	i.schedule()
}

// Stop removes the indicator text and clears the anchor. It is a no-op if
// the indicator is not active.
func (i *Indicator) Stop() {
	if !i.active {
		return
	}
	i.active = false
	i.gen++
	if i.anchor != nil {
		i.out.Truncate(*i.anchor)
		i.anchor = nil
	}
}

// Reset forgets the indicator without touching the transcript. Use it when
// the transcript has been cleared underneath the indicator.
func (i *Indicator) Reset() {
	i.active = false
	i.gen++
	i.anchor = nil
}

// Active reports whether the animation is running.
func (i *Indicator) Active() bool {
	return i.active
}

// Frame returns the text of the current frame.
func (i *Indicator) Frame() string {
	return i.text()
}

func (i *Indicator) schedule() {
	gen := i.gen
	i.sched.After(i.interval, func() { i.tick(gen) })
}

func (i *Indicator) tick(gen uint64) {
	if gen != i.gen || !i.active {
		return
	}
	i.dots = (i.dots + 1) % (MaxDots + 1)
	i.frame = (i.frame + 1) % len(i.icons)
	i.draw()
	i.schedule()
}

// draw replaces the previous frame with the current one.
func (i *Indicator) draw() {
	i.out.Truncate(*i.anchor)
	i.out.Append(i.text(), transcript.KindThinking)
	i.out.ScrollToEnd()
}

func (i *Indicator) text() string {
	return fmt.Sprintf("%s %s is thinking%s", i.icons[i.frame], i.label, strings.Repeat(".", i.dots))
}
