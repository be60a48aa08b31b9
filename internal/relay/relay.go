// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay implements the chat relay: it windows a user's history into
// a prompt, calls the upstream completer once, and records the exchange.
//
// Upstream failures never surface as errors. They become a fixed apologetic
// reply so the HTTP layer can still answer with a normal chat response.
// Only store failures are returned as errors.
package relay

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jeranaias/relaychat/internal/cloud"
	"github.com/jeranaias/relaychat/internal/history"
	"github.com/jeranaias/relaychat/internal/model"
	"github.com/jeranaias/relaychat/internal/util"
)

// maxLoggedError caps upstream error text in log lines.
const maxLoggedError = 200

// DefaultSystemPrompt is the fixed instruction placed first in every prompt.
const DefaultSystemPrompt = "You are Changzheng AI, an intelligent assistant. " +
	"You have broad knowledge, can answer all kinds of questions, hold in-depth conversations, " +
	"and offer useful suggestions. Communicate with users in a friendly, professional, well-grounded way."

// Completer produces an assistant reply for a prompt.
type Completer interface {
	Complete(ctx context.Context, messages []model.Message) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, messages []model.Message) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, messages []model.Message) (string, error) {
	return f(ctx, messages)
}

// =============================================================================
// APOLOGIES
// =============================================================================

// Canned replies returned in place of a completion.
const (
	ReplyMalformed   = "Sorry, I couldn't come up with a suitable response."
	ReplyUnavailable = "Sorry, the service is temporarily unavailable. Please try again later."
	ReplyTimeout     = "Sorry, the request timed out. Please try again later."
	ReplyNetwork     = "Sorry, there was a network problem. Please check the connection and try again."
	ReplyUnknown     = "Sorry, an unknown error occurred. Please try again later."
)

// ApologyFor returns the user-facing reply for a failure kind.
func ApologyFor(kind cloud.Kind) string {
	switch kind {
	case cloud.KindMalformed:
		return ReplyMalformed
	case cloud.KindStatus, cloud.KindNotConfigured:
		return ReplyUnavailable
	case cloud.KindTimeout:
		return ReplyTimeout
	case cloud.KindTransport:
		return ReplyNetwork
	default:
		return ReplyUnknown
	}
}

// =============================================================================
// PROMPT
// =============================================================================

// BuildPrompt returns the system instruction, then recent flattened to
// alternating user/assistant messages, then the new user message.
func BuildPrompt(systemPrompt string, recent []model.Turn, message string) []model.Message {
	msgs := make([]model.Message, 0, len(recent)*2+2)
	msgs = append(msgs, model.NewSystemMessage(systemPrompt))
	msgs = append(msgs, model.FlattenTurns(recent)...)
	msgs = append(msgs, model.NewUserMessage(message))
	return msgs
}

// =============================================================================
// SERVICE
// =============================================================================

// Options configures a Service. Zero values take defaults.
type Options struct {
	SystemPrompt string
	Window       int
}

// Reply is the outcome of one chat call.
type Reply struct {
	Text string
	// Failure is KindNone when Text came from the completer.
	Failure   cloud.Kind
	CreatedAt time.Time
}

// Degraded reports whether Text is a canned apology.
func (r Reply) Degraded() bool {
	return r.Failure != cloud.KindNone
}

// Stats is a snapshot of relay counters.
type Stats struct {
	ChatRequests     int64
	UpstreamFailures int64
}

// Service relays chat messages to a Completer with per-user history.
type Service struct {
	store        history.Store
	completer    Completer
	systemPrompt string
	window       int

	chats    atomic.Int64
	failures atomic.Int64
}

// NewService creates a relay over store and completer.
func NewService(store history.Store, completer Completer, opts Options) *Service {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.Window <= 0 {
		opts.Window = history.DefaultWindow
	}
	return &Service{
		store:        store,
		completer:    completer,
		systemPrompt: opts.SystemPrompt,
		window:       opts.Window,
	}
}

// Chat relays message for userID. The returned error is non-nil only when
// the history store fails; upstream failures yield a degraded Reply.
//
// Reading the window and appending the new turn are separate store calls.
// Concurrent chats for the same user may each miss the other's turn.
func (s *Service) Chat(ctx context.Context, userID, message string) (Reply, error) {
	s.chats.Add(1)

	recent, err := s.store.Recent(ctx, userID, s.window)
	if err != nil {
		return Reply{}, fmt.Errorf("load history for %q: %w", userID, err)
	}

	prompt := BuildPrompt(s.systemPrompt, recent, message)
	text, err := s.completer.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty completion", cloud.ErrMalformed)
	}
	if err != nil {
		s.failures.Add(1)
		kind := cloud.Classify(err)
		log.Printf("RELAY_DEGRADED | user=%s kind=%s error=%s", userID, kind, util.TruncateRunes(err.Error(), maxLoggedError))
		return Reply{Text: ApologyFor(kind), Failure: kind, CreatedAt: time.Now()}, nil
	}

	turn := model.NewTurn(message, text)
	if err := s.store.Append(ctx, userID, turn); err != nil {
		return Reply{}, fmt.Errorf("append history for %q: %w", userID, err)
	}
	log.Printf("RELAY_OK | user=%s window=%d reply_chars=%d", userID, len(recent), util.RuneLen(text))

	return Reply{Text: text, Failure: cloud.KindNone, CreatedAt: turn.CreatedAt}, nil
}

// History returns every stored turn for userID.
func (s *Service) History(ctx context.Context, userID string) ([]model.Turn, error) {
	return s.store.Get(ctx, userID)
}

// Clear drops userID's history.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.store.Clear(ctx, userID)
}

// Users returns the number of users with stored history.
func (s *Service) Users(ctx context.Context) (int, error) {
	return s.store.Users(ctx)
}

// Stats returns a snapshot of the relay counters.
func (s *Service) Stats() Stats {
	return Stats{
		ChatRequests:     s.chats.Load(),
		UpstreamFailures: s.failures.Load(),
	}
}
