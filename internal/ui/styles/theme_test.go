// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/relaychat/internal/transcript"
)

// plainTheme renders without escape codes so output can be compared.
func plainTheme(t *testing.T) *Theme {
	t.Helper()
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })
	return NewTheme()
}

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"HeaderTitle", theme.HeaderTitle},
		{"AvatarPanel", theme.AvatarPanel},
		{"InputContainer", theme.InputContainer},
		{"StatusOnline", theme.StatusOnline},
	}
	for _, s := range styles {
		if s.style.Render("test") == "" {
			t.Errorf("%s style should be initialized", s.name)
		}
	}
}

func TestTheme_StyleCoversEveryKind(t *testing.T) {
	theme := NewTheme()
	kinds := []transcript.Kind{
		transcript.KindBody, transcript.KindBold, transcript.KindHeading1,
		transcript.KindHeading2, transcript.KindHeading3, transcript.KindListItem,
		transcript.KindThinking, transcript.KindTimestamp, transcript.KindUserHeader,
		transcript.KindAssistantHeader, transcript.KindSystemHeader,
		transcript.KindUserBody, transcript.KindSystemBody,
	}
	for _, k := range kinds {
		if _, ok := theme.kinds[k]; !ok {
			t.Errorf("no style for kind %s", k)
		}
	}

	if !theme.Style(transcript.KindBold).GetBold() {
		t.Error("bold kind should render bold")
	}
	if theme.Style(transcript.KindListItem).GetForeground() == theme.Style(transcript.KindBody).GetForeground() {
		t.Error("list items should be colored apart from body text")
	}
	if !theme.Style(transcript.KindThinking).GetItalic() {
		t.Error("thinking kind should render italic")
	}
	if theme.Style(transcript.Kind(99)).GetBold() {
		t.Error("unknown kind should fall back to body")
	}
}

func TestTheme_RenderSegmentsKeepsText(t *testing.T) {
	theme := plainTheme(t)
	segs := []transcript.Segment{
		{Text: "[12:00:00] ", Kind: transcript.KindTimestamp},
		{Text: "You:\n", Kind: transcript.KindUserHeader},
		{Text: "line one\n\nline ", Kind: transcript.KindUserBody},
		{Text: "two", Kind: transcript.KindBold},
	}

	got := theme.RenderSegments(segs)
	want := "[12:00:00] You:\nline one\n\nline two"
	if got != want {
		t.Errorf("RenderSegments() = %q, want %q", got, want)
	}
}

func TestTheme_RenderSegmentsDoesNotPadLines(t *testing.T) {
	theme := plainTheme(t)
	got := theme.RenderSegments([]transcript.Segment{{Text: "a\nlonger line", Kind: transcript.KindBody}})
	if strings.HasPrefix(got, "a ") {
		t.Errorf("short line was padded: %q", got)
	}
}

// =============================================================================
// LAYOUT TESTS
// =============================================================================

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	theme := NewTheme()
	for _, tt := range tests {
		theme.SetSize(tt.width, 30)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}
}

// =============================================================================
// ANIMATION TESTS
// =============================================================================

func TestStatusPulse(t *testing.T) {
	if got := StatusPulse.Duration(); got != time.Second {
		t.Errorf("StatusPulse.Duration() = %v, want 1s", got)
	}
	n := len(StatusPulse.Frames)
	if StatusPulse.Frame(n) != StatusPulse.Frame(0) {
		t.Error("Frame should wrap around")
	}
	if StatusPulse.Frame(-1) == "" {
		t.Error("negative frame should still render")
	}
	if (SpinnerConfig{}).Frame(3) != "" {
		t.Error("empty config should render nothing")
	}
	if (SpinnerConfig{}).Duration() != time.Second {
		t.Error("zero FPS should default to one second")
	}
}

func TestStatusDot(t *testing.T) {
	theme := plainTheme(t)
	if got := theme.StatusDot(true, 0); got != "●" {
		t.Errorf("StatusDot(true, 0) = %q, want ●", got)
	}
	if got := theme.StatusDot(false, 2); got != "○" {
		t.Errorf("StatusDot(false, 2) = %q, want ○", got)
	}
}
