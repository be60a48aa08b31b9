// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history stores the per-user conversation turns kept by the relay.
//
// Turns are ordered oldest first. Only the most recent Window turns are used
// to build a prompt, but the full sequence is retained until it is cleared.
// Two backends are provided: MemoryStore (a mutex-guarded map, the default)
// and SQLiteStore (modernc.org/sqlite, in-memory unless a file DSN is given).
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/relaychat/internal/model"
)

// DefaultWindow is the number of recent turns included in a prompt.
const DefaultWindow = 5

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("history store closed")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown history backend")
)

// Store is the per-user turn sequence used by the relay.
//
// Each call is atomic with respect to other calls. A read followed by an
// append is not: callers that need read-modify-write semantics for one user
// must serialize themselves.
type Store interface {
	// Get returns every turn for userID, oldest first. An unknown user yields
	// an empty, non-nil slice.
	Get(ctx context.Context, userID string) ([]model.Turn, error)

	// Recent returns at most n of the newest turns for userID, oldest first.
	Recent(ctx context.Context, userID string, n int) ([]model.Turn, error)

	// Append adds a turn to the end of userID's sequence, creating the
	// sequence if needed.
	Append(ctx context.Context, userID string, turn model.Turn) error

	// Clear drops userID's sequence. Clearing an unknown user is a no-op.
	Clear(ctx context.Context, userID string) error

	// Users returns the number of users with at least one turn.
	Users(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// Pinger is implemented by stores that hold a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check verifies that store can serve requests. Stores without a connection
// always pass.
func Check(ctx context.Context, store Store) error {
	if p, ok := store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("ping history store: %w", err)
		}
	}
	return nil
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open returns a store for the named backend. dsn is only used by sqlite.
func Open(backend, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
