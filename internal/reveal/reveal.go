// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal displays a complete reply incrementally, one token per
// scheduled step, recognising a small markdown subset.
//
// Steps run on a sched.Scheduler and never overlap. Each reveal carries a
// generation number; a step whose generation is no longer current does
// nothing, so starting a new reveal leaves no orphaned writes behind.
package reveal

import (
	"time"

	"github.com/jeranaias/relaychat/internal/sched"
	"github.com/jeranaias/relaychat/internal/transcript"
)

// State is the renderer's lifecycle state.
type State int

const (
	// StateIdle means no reveal has run, or the last one completed.
	StateIdle State = iota
	// StateRevealing means steps are being scheduled.
	StateRevealing
	// StatePreempted means the last reveal was cancelled before it completed.
	StatePreempted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRevealing:
		return "revealing"
	case StatePreempted:
		return "preempted"
	default:
		return "unknown"
	}
}

// Delays configures the pause after each kind of step.
type Delays struct {
	Short time.Duration
	Long  time.Duration
}

// DefaultDelays returns 30ms for ordinary steps and 50ms after headings and
// pause punctuation.
func DefaultDelays() Delays {
	return Delays{Short: 30 * time.Millisecond, Long: 50 * time.Millisecond}
}

func (d Delays) of(c DelayClass) time.Duration {
	if c == DelayLong {
		return d.Long
	}
	return d.Short
}

// DefaultBullet prefixes list items.
const DefaultBullet = "• "

// Separator is written after a completed reveal.
const Separator = "\n\n"

// Option configures a Renderer.
type Option func(*Renderer)

// WithDelays overrides the step delays.
func WithDelays(d Delays) Option {
	return func(r *Renderer) { r.delays = d }
}

// WithMatchers replaces the ordered matcher list. The list must end with a
// matcher that always matches.
func WithMatchers(m ...Matcher) Option {
	return func(r *Renderer) { r.matchers = m }
}

// Renderer is the incremental reveal state machine. All methods must be
// called on the scheduler's thread.
type Renderer struct {
	sched    sched.Scheduler
	out      *transcript.Transcript
	matchers []Matcher
	delays   Delays

	text   []rune
	cursor int
	gen    uint64
	state  State

	onComplete func()
	onStep     func(cursor int)
}

// New creates a renderer writing to out.
func New(s sched.Scheduler, out *transcript.Transcript, opts ...Option) *Renderer {
	r := &Renderer{
		sched:    s,
		out:      out,
		matchers: DefaultMatchers(DefaultBullet),
		delays:   DefaultDelays(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnComplete registers fn to run when a reveal reaches the end of its text.
func (r *Renderer) OnComplete(fn func()) {
	r.onComplete = fn
}

// OnStep registers fn to run after every emitted token with the new cursor.
func (r *Renderer) OnStep(fn func(cursor int)) {
	r.onStep = fn
}

// Start preempts any reveal in progress and begins revealing text.
func (r *Renderer) Start(text string) {
	r.preempt()
	r.text = []rune(text)
	r.cursor = 0
	r.state = StateRevealing
	r.out.SetEditable(true)
	r.schedule(0)
}

// Cancel stops the reveal in progress without writing the separator.
func (r *Renderer) Cancel() {
	if r.state != StateRevealing {
		return
	}
	r.preempt()
	r.out.SetEditable(false)
}

// State returns the current lifecycle state.
func (r *Renderer) State() State {
	return r.state
}

// Active reports whether a reveal is in progress.
func (r *Renderer) Active() bool {
	return r.state == StateRevealing
}

// Cursor returns the rune offset of the next token.
func (r *Renderer) Cursor() int {
	return r.cursor
}

// Len returns the rune length of the text being revealed.
func (r *Renderer) Len() int {
	return len(r.text)
}

// Generation returns the current reveal generation.
func (r *Renderer) Generation() uint64 {
	return r.gen
}

func (r *Renderer) preempt() {
	r.gen++
	if r.state == StateRevealing {
		r.state = StatePreempted
	}
}

func (r *Renderer) schedule(d time.Duration) {
	gen := r.gen
	r.sched.After(d, func() { r.step(gen) })
}

// step emits one token. Stale generations are ignored.
func (r *Renderer) step(gen uint64) {
	if gen != r.gen || r.state != StateRevealing {
		return
	}
	if r.cursor >= len(r.text) {
		r.finish()
		return
	}

	tok := r.match()
	r.out.Append(tok.Text, tok.Kind)
	r.out.Append(tok.Trailing, transcript.KindBody)
	r.cursor = tok.Next
	r.out.ScrollToEnd()
	if r.onStep != nil {
		r.onStep(r.cursor)
	}

	if r.cursor >= len(r.text) {
		r.finish()
		return
	}
	r.schedule(r.delays.of(tok.Delay))
}

func (r *Renderer) match() Token {
	for _, m := range r.matchers {
		if tok, ok := m.Match(r.text, r.cursor); ok {
			if tok.Next <= r.cursor {
				tok.Next = r.cursor + 1
			}
			if tok.Next > len(r.text) {
				tok.Next = len(r.text)
			}
			return tok
		}
	}
	// Unreachable with a plain matcher last; keep progress anyway.
	tok, _ := matchPlain(r.text, r.cursor)
	return tok
}

func (r *Renderer) finish() {
	r.state = StateIdle
	r.out.Append(Separator, transcript.KindBody)
	r.out.ScrollToEnd()
	r.out.SetEditable(false)
	if r.onComplete != nil {
		r.onComplete()
	}
}
