// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"time"

	"github.com/jeranaias/relaychat/internal/reveal"
	"github.com/jeranaias/relaychat/internal/sched"
	"github.com/jeranaias/relaychat/internal/thinking"
	"github.com/jeranaias/relaychat/internal/transcript"
)

// =============================================================================
// ENTRY HEADERS
// =============================================================================

const (
	// UserIcon prefixes user entries.
	UserIcon = "👤"
	// AssistantIcon prefixes assistant entries.
	AssistantIcon = "🤖"
	// SystemIcon prefixes system entries.
	SystemIcon = "⚠️"

	// UserName labels user entries.
	UserName = "You"
	// SystemName labels system entries.
	SystemName = "System"

	// DefaultAssistantName is used when no name is configured.
	DefaultAssistantName = "Changzheng AI"

	timestampLayout = "15:04:05"
	entrySeparator  = "\n\n"
)

// =============================================================================
// PRESENTER
// =============================================================================

// Presenter owns the transcript and coordinates the reveal renderer and the
// thinking indicator. It knows nothing about the terminal; the bubbletea
// model and the line-mode REPL both drive one.
//
// All methods must be called on the scheduler's thread.
type Presenter struct {
	tr        *transcript.Transcript
	renderer  *reveal.Renderer
	indicator *thinking.Indicator

	name        string
	status      string
	waiting     bool
	now         func() time.Time
	onReplyDone func()
}

// PresenterOption configures a Presenter.
type PresenterOption func(*presenterConfig)

type presenterConfig struct {
	now      func() time.Time
	reveal   []reveal.Option
	thinking []thinking.Option
}

// WithClock sets the clock used for entry timestamps.
func WithClock(now func() time.Time) PresenterOption {
	return func(c *presenterConfig) { c.now = now }
}

// WithRevealOptions passes options to the reveal renderer.
func WithRevealOptions(opts ...reveal.Option) PresenterOption {
	return func(c *presenterConfig) { c.reveal = append(c.reveal, opts...) }
}

// WithThinkingOptions passes options to the thinking indicator.
func WithThinkingOptions(opts ...thinking.Option) PresenterOption {
	return func(c *presenterConfig) { c.thinking = append(c.thinking, opts...) }
}

// NewPresenter creates a presenter whose timed work runs on s.
func NewPresenter(s sched.Scheduler, assistantName string, opts ...PresenterOption) *Presenter {
	cfg := presenterConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if assistantName == "" {
		assistantName = DefaultAssistantName
	}

	tr := transcript.New()
	p := &Presenter{
		tr:        tr,
		renderer:  reveal.New(s, tr, cfg.reveal...),
		indicator: thinking.New(s, tr, assistantName, cfg.thinking...),
		name:      assistantName,
		now:       cfg.now,
	}
	p.status = p.readyStatus()
	p.renderer.OnComplete(func() {
		p.status = p.readyStatus()
		p.replyDone()
	})
	return p
}

// OnReplyDone registers fn to run when a reply has been fully revealed or
// its request has failed.
func (p *Presenter) OnReplyDone(fn func()) {
	p.onReplyDone = fn
}

// Transcript returns the transcript the presenter writes to.
func (p *Presenter) Transcript() *transcript.Transcript {
	return p.tr
}

// Renderer returns the reveal renderer.
func (p *Presenter) Renderer() *reveal.Renderer {
	return p.renderer
}

// Indicator returns the thinking indicator.
func (p *Presenter) Indicator() *thinking.Indicator {
	return p.indicator
}

// AssistantName returns the display name of the assistant.
func (p *Presenter) AssistantName() string {
	return p.name
}

// Status returns the one-line status shown under the transcript.
func (p *Presenter) Status() string {
	return p.status
}

// Waiting reports whether a reply is outstanding.
func (p *Presenter) Waiting() bool {
	return p.waiting
}

// Revealing reports whether a reply is still being revealed.
func (p *Presenter) Revealing() bool {
	return p.renderer.Active()
}

// AddUserMessage appends a user entry. A reveal in progress is cut short
// first so the two never interleave.
func (p *Presenter) AddUserMessage(text string) {
	p.appendEntry(UserIcon, UserName, transcript.KindUserHeader, text, transcript.KindUserBody)
}

// AddSystemMessage appends a system entry.
func (p *Presenter) AddSystemMessage(text string) {
	p.appendEntry(SystemIcon, SystemName, transcript.KindSystemHeader, text, transcript.KindSystemBody)
}

// BeginWaiting marks a request as sent and starts the thinking indicator.
func (p *Presenter) BeginWaiting() {
	p.waiting = true
	p.status = fmt.Sprintf("%s %s is thinking...", thinking.DefaultIcons[0], p.name)
	p.indicator.Start()
}

// ShowReply removes the indicator, writes the assistant header and starts
// revealing text.
func (p *Presenter) ShowReply(text string) {
	p.waiting = false
	p.indicator.Stop()
	p.writeHeader(AssistantIcon, p.name, transcript.KindAssistantHeader)
	p.status = fmt.Sprintf("%s %s is replying", AssistantIcon, p.name)
	p.renderer.Start(text)
}

// ShowError removes the indicator and reports a failed request as a system
// entry.
func (p *Presenter) ShowError(text string) {
	p.waiting = false
	p.indicator.Stop()
	p.AddSystemMessage(text)
	p.status = "❌ Request failed"
	p.replyDone()
}

// Clear empties the transcript and abandons any reveal or indicator.
func (p *Presenter) Clear() {
	p.renderer.Cancel()
	p.indicator.Reset()
	p.tr.Clear()
	p.tr.ScrollToEnd()
	if p.waiting {
		p.indicator.Start()
		return
	}
	p.status = p.readyStatus()
}

// appendEntry writes a complete entry. An active indicator is lifted off
// the end of the transcript and redrawn after the entry.
func (p *Presenter) appendEntry(icon, sender string, headerKind transcript.Kind, body string, bodyKind transcript.Kind) {
	resume := p.indicator.Active()
	if resume {
		p.indicator.Stop()
	}
	p.interruptReveal()

	p.writeHeader(icon, sender, headerKind)
	p.tr.Append(body+entrySeparator, bodyKind)
	p.tr.ScrollToEnd()

	if resume {
		p.indicator.Start()
	}
}

// interruptReveal cancels an unfinished reveal and closes its entry.
func (p *Presenter) interruptReveal() {
	if !p.renderer.Active() {
		return
	}
	p.renderer.Cancel()
	p.tr.Append(reveal.Separator, transcript.KindBody)
}

func (p *Presenter) writeHeader(icon, sender string, kind transcript.Kind) {
	p.tr.Append("["+p.now().Format(timestampLayout)+"] ", transcript.KindTimestamp)
	p.tr.Append(icon+" "+sender+":\n", kind)
}

func (p *Presenter) replyDone() {
	if p.onReplyDone != nil {
		p.onReplyDone()
	}
}

func (p *Presenter) readyStatus() string {
	return fmt.Sprintf("✅ %s ready", p.name)
}
