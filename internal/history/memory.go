// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"sync"

	"github.com/jeranaias/relaychat/internal/model"
)

// MemoryStore keeps turns in process memory. Everything is lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	turns  map[string][]model.Turn
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]model.Turn)}
}

// Get returns a copy of every turn for userID.
func (s *MemoryStore) Get(_ context.Context, userID string) ([]model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	src := s.turns[userID]
	out := make([]model.Turn, len(src))
	copy(out, src)
	return out, nil
}

// Recent returns a copy of the newest n turns for userID.
func (s *MemoryStore) Recent(_ context.Context, userID string, n int) ([]model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return model.LastTurns(s.turns[userID], n), nil
}

// Append adds turn to userID's sequence.
func (s *MemoryStore) Append(_ context.Context, userID string, turn model.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.turns[userID] = append(s.turns[userID], turn)
	return nil
}

// Clear removes userID's sequence.
func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.turns, userID)
	return nil
}

// Users returns the number of users with stored turns.
func (s *MemoryStore) Users(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.turns), nil
}

// Close drops all turns. Further calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.closed = true
	return nil
}
