// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// AccentRed - Primary accent, bold text, headings, assistant header
var AccentRed = lipgloss.AdaptiveColor{Light: "#C8102E", Dark: "#FF3B3B"}

// AccentRedDeep - Darker red for borders and panel frames
var AccentRedDeep = lipgloss.AdaptiveColor{Light: "#8B0000", Dark: "#7A1010"}

// AccentRedSoft - Thinking indicator and list bullets
var AccentRedSoft = lipgloss.AdaptiveColor{Light: "#D14B4B", Dark: "#FF7A7A"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Success - Connected status dot
var Success = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#3DDC84"}

// Warning - System entries
var Warning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FFB020"}

// Error - Disconnected status dot, failures
var Error = lipgloss.AdaptiveColor{Light: "#D01818", Dark: "#FF4040"}

// Info - User header
var Info = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#5AA9FF"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0D0D0F"}

// SurfaceDim - Header and status bar background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F4F0F0", Dark: "#1A0E10"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main content text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F2F2F2"}

// TextSecondary - Less important text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#4A4A4A", Dark: "#B8B8B8"}

// TextMuted - Timestamps, placeholders, help text
var TextMuted = lipgloss.AdaptiveColor{Light: "#7A7A7A", Dark: "#6E6E6E"}
