// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one user message together with the assistant reply it produced.
// Turns are immutable once created.
type Turn struct {
	UserText  string    `json:"user"`
	AIText    string    `json:"ai"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(userText, aiText string) Turn {
	return Turn{
		UserText:  userText,
		AIText:    aiText,
		CreatedAt: time.Now(),
	}
}

// Messages returns the turn as a user/assistant message pair.
func (t Turn) Messages() [2]Message {
	return [2]Message{
		NewUserMessage(t.UserText),
		NewAssistantMessage(t.AIText),
	}
}

// FlattenTurns converts turns into alternating user/assistant messages,
// preserving order.
func FlattenTurns(turns []Turn) []Message {
	msgs := make([]Message, 0, len(turns)*2)
	for _, t := range turns {
		pair := t.Messages()
		msgs = append(msgs, pair[0], pair[1])
	}
	return msgs
}

// LastTurns returns at most n of the most recent turns. The returned slice
// shares no backing array with turns.
func LastTurns(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) == 0 {
		return []Turn{}
	}
	start := len(turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(turns)-start)
	copy(out, turns[start:])
	return out
}
