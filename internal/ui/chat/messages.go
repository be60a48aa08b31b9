// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea message types used by the chat interface.
// Network results and avatar frames arrive from background goroutines as
// messages, so every transcript mutation happens inside Update.
package chat

import (
	"time"

	"github.com/jeranaias/relaychat/internal/avatar"
	"github.com/jeranaias/relaychat/internal/model"
)

// =============================================================================
// RELAY MESSAGES
// =============================================================================

// HealthMsg carries the result of a connection test.
type HealthMsg struct {
	Service string
	Err     error
}

// ReplyMsg carries the result of a chat request.
type ReplyMsg struct {
	Text string
	Err  error
}

// HistoryMsg carries the server-side history for the current user.
type HistoryMsg struct {
	Turns []model.Turn
	Err   error
}

// HistoryClearedMsg reports the result of DELETE /history/{user_id}.
type HistoryClearedMsg struct {
	Err error
}

// =============================================================================
// ANIMATION MESSAGES
// =============================================================================

// AvatarFrameMsg delivers the newest avatar frame.
type AvatarFrameMsg avatar.Frame

// PulseMsg advances the connection dot animation.
type PulseMsg time.Time
