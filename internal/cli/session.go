// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"github.com/jeranaias/relaychat/internal/client"
	"github.com/jeranaias/relaychat/internal/sched"
	"github.com/jeranaias/relaychat/internal/ui/chat"
)

// =============================================================================
// SESSION
// =============================================================================

// Prompt is shown before each input line.
const Prompt = "❯ "

// lineModeHelp lists the commands only line mode has.
const lineModeHelp = "\n  /test     test the connection\n  /quit     exit"

// notConnectedLine is shown when the user sends before a successful
// connection test.
const notConnectedLine = "Not connected to the relay server. Type /test to retry."

// SessionOptions configures a line-mode session.
type SessionOptions struct {
	AssistantName string
	// Width wraps rendered history. Zero uses the terminal width.
	Width     int
	Profile   termenv.Profile
	Dark      bool
	Presenter []chat.PresenterOption
}

// Session is the line-mode REPL. It drives the same Presenter as the
// full-screen UI; all presenter calls run on one sched.Loop goroutine while
// input, network calls and the loop's timers run elsewhere.
type Session struct {
	backend   chat.Backend
	loop      *sched.Loop
	presenter *chat.Presenter
	printer   *Printer
	width     int

	// Loop goroutine state
	connected   bool
	pending     func()
	flushQueued bool
}

// NewSession creates a session printing to out.
func NewSession(backend chat.Backend, out io.Writer, opts SessionOptions) *Session {
	loop := sched.NewLoop()
	p := chat.NewPresenter(loop, opts.AssistantName, opts.Presenter...)

	width := opts.Width
	if width <= 0 {
		width = GetTerminalWidth()
	}

	s := &Session{
		backend:   backend,
		loop:      loop,
		presenter: p,
		printer:   NewPrinter(out, opts.Profile, opts.Dark, p.Transcript()),
		width:     width,
	}

	// Coalesce bursts of transcript changes into one flush.
	p.Transcript().OnChange(func() {
		if s.flushQueued {
			return
		}
		s.flushQueued = true
		loop.Post(func() {
			s.flushQueued = false
			s.printer.Flush()
		})
	})
	p.OnReplyDone(func() {
		if done := s.pending; done != nil {
			s.pending = nil
			done()
		}
	})
	return s
}

// Presenter returns the presenter behind the session.
func (s *Session) Presenter() *chat.Presenter {
	return s.presenter
}

// Run tests the connection, then reads lines from in until it reports
// io.EOF, the user quits, or ctx ends. Each line is fully handled (reply
// revealed) before the next prompt.
func (s *Session) Run(ctx context.Context, in LineSource) error {
	ctx, cancel := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		s.loop.Run(ctx)
	}()
	defer func() {
		cancel()
		<-loopDone
	}()

	if err := s.do(ctx, func(done func()) { s.testConnection(ctx, done) }); err != nil {
		return err
	}

	for {
		line, err := in.Prompt(Prompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in.AppendHistory(line)

		if name, _, ok := chat.ParseCommand(line); ok && (name == "quit" || name == "exit" || name == "q") {
			return nil
		}
		if err := s.do(ctx, func(done func()) { s.handle(ctx, line, done) }); err != nil {
			return err
		}
	}
}

// do runs fn on the loop and waits until fn's work calls done. The
// transcript is flushed before done returns control to the prompt.
func (s *Session) do(ctx context.Context, fn func(done func())) error {
	ch := make(chan struct{})
	var once sync.Once
	done := func() {
		s.printer.Flush()
		once.Do(func() { close(ch) })
	}

	s.loop.Post(func() { fn(done) })
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// LINE HANDLING (loop goroutine)
// =============================================================================

func (s *Session) handle(ctx context.Context, line string, done func()) {
	if name, _, ok := chat.ParseCommand(line); ok {
		s.command(ctx, name, done)
		return
	}

	if !s.connected {
		s.presenter.AddSystemMessage(notConnectedLine)
		done()
		return
	}

	s.pending = done
	s.presenter.AddUserMessage(line)
	s.presenter.BeginWaiting()

	go func() {
		resp, err := s.backend.Chat(ctx, line)
		s.loop.Post(func() {
			if err != nil {
				if errors.Is(err, client.ErrConnection) {
					s.connected = false
				}
				log.Printf("CHAT_FAILED | error=%v", err)
				s.presenter.ShowError(fmt.Sprintf("Request failed: %v", err))
				return
			}
			s.presenter.ShowReply(resp.Response)
		})
	}()
}

func (s *Session) command(ctx context.Context, name string, done func()) {
	switch name {
	case "clear", "c":
		s.presenter.Clear()
		done()

	case "reset":
		s.presenter.Clear()
		go func() {
			err := s.backend.ClearHistory(ctx)
			s.loop.Post(func() {
				if err != nil {
					s.presenter.AddSystemMessage(fmt.Sprintf("Could not clear server history: %v", err))
				} else {
					s.presenter.AddSystemMessage("Server history cleared.")
				}
				done()
			})
		}()

	case "history", "hist":
		go func() {
			turns, err := s.backend.History(ctx)
			s.loop.Post(func() {
				if err != nil {
					s.presenter.AddSystemMessage(fmt.Sprintf("Could not fetch history: %v", err))
				} else {
					s.presenter.AddSystemMessage(chat.FormatHistory(turns, s.presenter.AssistantName(), s.width))
				}
				done()
			})
		}()

	case "test":
		s.testConnection(ctx, done)

	case "help", "h", "?":
		s.presenter.AddSystemMessage(chat.HelpText() + lineModeHelp)
		done()

	default:
		s.presenter.AddSystemMessage(fmt.Sprintf("Unknown command /%s. Type /help for a list.", name))
		done()
	}
}

func (s *Session) testConnection(ctx context.Context, done func()) {
	go func() {
		resp, err := s.backend.Health(ctx)
		s.loop.Post(func() {
			if err != nil {
				s.connected = false
				s.presenter.AddSystemMessage(fmt.Sprintf("Connection failed: %v", err))
			} else {
				s.connected = true
				s.presenter.AddSystemMessage(fmt.Sprintf("Connected to %s.", resp.Service))
			}
			done()
		})
	}()
}
