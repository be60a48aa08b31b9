// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package avatar plays the looping ASCII avatar shown beside the chat.
//
// Playback runs on its own goroutine at a fixed frame interval, independent
// of chat activity. Frames are published on a channel that keeps only the
// newest frame, so a slow UI never blocks playback. Stop flips a running
// flag and closes the source; it does not wait for the goroutine.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultFrameInterval is the time between frames (about 30 fps).
const DefaultFrameInterval = 33 * time.Millisecond

// Status texts reported by a Player.
const (
	StatusIdle     = "avatar idle"
	StatusPlaying  = "avatar playing"
	StatusNotFound = "avatar file not found"
	StatusStopped  = "avatar stopped"
)

// Frame is one published avatar frame.
type Frame struct {
	Index int
	Text  string
}

// Player loops frames from a Source.
type Player struct {
	path     string
	interval time.Duration
	open     func(path string) (Source, error)

	running atomic.Bool
	frames  chan Frame

	mu     sync.Mutex
	source Source
	cancel context.CancelFunc
	status string
	done   chan struct{}
}

// Option configures a Player.
type Option func(*Player)

// WithInterval overrides the frame interval.
func WithInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithOpener replaces how the avatar file is opened.
func WithOpener(open func(path string) (Source, error)) Option {
	return func(p *Player) { p.open = open }
}

// NewPlayer creates a player for the avatar file at path.
func NewPlayer(path string, opts ...Option) *Player {
	p := &Player{
		path:     path,
		interval: DefaultFrameInterval,
		open: func(path string) (Source, error) {
			return OpenFile(path)
		},
		frames: make(chan Frame, 1),
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Path returns the avatar file path.
func (p *Player) Path() string {
	return p.path
}

// Frames delivers the newest frame. The channel is never closed.
func (p *Player) Frames() <-chan Frame {
	return p.frames
}

// Running reports whether playback is active.
func (p *Player) Running() bool {
	return p.running.Load()
}

// Status returns a short human-readable playback status.
func (p *Player) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start opens the avatar file and begins playback. A missing file sets the
// not-found status and returns an error wrapping ErrNotFound. Starting a
// running player is a no-op.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return nil
	}

	src, err := p.open(p.path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			p.status = StatusNotFound
		} else {
			p.status = fmt.Sprintf("avatar failed: %v", err)
		}
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.source = src
	p.cancel = cancel
	p.status = StatusPlaying
	p.done = make(chan struct{})
	p.running.Store(true)

	go p.loop(loopCtx, src, p.done)
	log.Printf("AVATAR_START | path=%s interval=%s", p.path, p.interval)
	return nil
}

// Stop ends playback and releases the source.
func (p *Player) Stop() {
	p.stopWithStatus(StatusStopped)
}

// Done is closed when the current playback goroutine exits. It is nil if
// playback never started.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Player) stopWithStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Swap(false) {
		p.status = status
		return
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.source != nil {
		p.source.Close()
		p.source = nil
	}
	p.status = status
	log.Printf("AVATAR_STOP | path=%s status=%q", p.path, status)
}

// loop publishes frames until the running flag drops or ctx ends.
func (p *Player) loop(ctx context.Context, src Source, done chan struct{}) {
	defer close(done)

	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	index := 0
	for p.running.Load() {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		text, err := src.Next()
		if errors.Is(err, io.EOF) {
			if err := src.Rewind(); err != nil {
				return
			}
			index = 0
			continue
		}
		if err != nil {
			// Source closed underneath us by Stop.
			return
		}

		p.publish(Frame{Index: index, Text: text})
		index++
	}
}

// publish replaces any unread frame with f.
func (p *Player) publish(f Frame) {
	for {
		select {
		case p.frames <- f:
			return
		default:
		}
		select {
		case <-p.frames:
		default:
		}
	}
}
