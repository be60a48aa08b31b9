// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/relaychat/internal/transcript"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header        lipgloss.Style
	HeaderTitle   lipgloss.Style
	HeaderIcon    lipgloss.Style
	StatusOnline  lipgloss.Style
	StatusOffline lipgloss.Style
	StatusText    lipgloss.Style

	// ==========================================================================
	// PANEL STYLES
	// ==========================================================================

	AvatarPanel   lipgloss.Style
	AvatarCaption lipgloss.Style
	Transcript    lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	HelpText         lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT SEGMENT STYLES
	// ==========================================================================

	kinds map[transcript.Kind]lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(AccentRedDeep).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(AccentRed)

	t.HeaderIcon = lipgloss.NewStyle().
		Foreground(AccentRed).
		MarginRight(1)

	t.StatusOnline = lipgloss.NewStyle().Foreground(Success)
	t.StatusOffline = lipgloss.NewStyle().Foreground(Error)
	t.StatusText = lipgloss.NewStyle().Foreground(TextSecondary)

	// Panels
	t.AvatarPanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AccentRedDeep).
		Padding(0, 1)

	t.AvatarCaption = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Transcript = lipgloss.NewStyle().Padding(0, 1)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AccentRed).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(AccentRed)

	t.InputPlaceholder = lipgloss.NewStyle().Foreground(TextMuted)
	t.HelpText = lipgloss.NewStyle().Foreground(TextMuted)

	// Transcript segments
	body := lipgloss.NewStyle().Foreground(TextPrimary)
	t.kinds = map[transcript.Kind]lipgloss.Style{
		transcript.KindBody:     body,
		transcript.KindBold:     lipgloss.NewStyle().Bold(true).Foreground(AccentRed),
		transcript.KindHeading1: lipgloss.NewStyle().Bold(true).Underline(true).Foreground(AccentRed),
		transcript.KindHeading2: lipgloss.NewStyle().Bold(true).Foreground(AccentRed),
		transcript.KindHeading3: lipgloss.NewStyle().Bold(true).Foreground(AccentRedSoft),
		transcript.KindListItem: lipgloss.NewStyle().Foreground(AccentRedSoft),
		transcript.KindThinking: lipgloss.NewStyle().Italic(true).Foreground(AccentRedSoft),

		transcript.KindTimestamp:       lipgloss.NewStyle().Foreground(TextMuted),
		transcript.KindUserHeader:      lipgloss.NewStyle().Bold(true).Foreground(Info),
		transcript.KindAssistantHeader: lipgloss.NewStyle().Bold(true).Foreground(AccentRed),
		transcript.KindSystemHeader:    lipgloss.NewStyle().Bold(true).Foreground(Warning),
		transcript.KindUserBody:        body,
		transcript.KindSystemBody:      lipgloss.NewStyle().Foreground(Warning),
	}
}

// Style returns the style for a segment kind, falling back to body.
func (t *Theme) Style(kind transcript.Kind) lipgloss.Style {
	if s, ok := t.kinds[kind]; ok {
		return s
	}
	return t.kinds[transcript.KindBody]
}

// RenderSegments renders transcript segments in order. Styles are applied
// per line so multi-line segments are not padded into a block.
func (t *Theme) RenderSegments(segs []transcript.Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		style := t.Style(seg.Kind)
		lines := strings.Split(seg.Text, "\n")
		for i, line := range lines {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(style.Render(line))
			}
		}
	}
	return b.String()
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, avatar hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
