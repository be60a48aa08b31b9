// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relaychat/internal/avatar"
	"github.com/jeranaias/relaychat/internal/ui/styles"
	"github.com/jeranaias/relaychat/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight    = 2 // title line + bottom border
	inputHeight     = 3 // rounded border around one line
	statusBarHeight = 1
	minTranscript   = 3

	// AvatarPanelWidth is the outer width of the avatar panel.
	AvatarPanelWidth = 26
	avatarChrome     = 4 // border + horizontal padding
)

// showAvatar reports whether the avatar panel fits beside the transcript.
func (m Model) showAvatar() bool {
	return m.player != nil && m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// transcriptSize returns the viewport dimensions for the current window.
func (m Model) transcriptSize() (width, height int) {
	width = m.width
	if m.showAvatar() {
		width -= AvatarPanelWidth
	}
	height = m.height - headerHeight - inputHeight - statusBarHeight
	return max(width, 10), max(height, minTranscript)
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat window.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting..."
	}

	body := m.viewport.View()
	if m.showAvatar() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderAvatar(), body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.theme.InputContainer.Width(max(m.width-2, 10)).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

// renderHeader draws the icon, the assistant name and the pulsing
// connection dot.
func (m Model) renderHeader() string {
	var b strings.Builder
	if m.icon != "" {
		b.WriteString(m.theme.HeaderIcon.Render(m.icon))
	}
	b.WriteString(m.theme.HeaderTitle.Render(m.presenter.AssistantName()))
	b.WriteString("  ")

	frame := m.pulse
	if m.checking {
		frame = 0
	}
	b.WriteString(m.theme.StatusDot(m.connected, frame))
	b.WriteString(" ")

	used := util.StringWidth(m.icon) + util.StringWidth(m.presenter.AssistantName()) + 6
	status := util.TruncateWidth(m.connStatus, max(m.width-used-4, 8))
	b.WriteString(m.theme.StatusText.Render(status))

	return m.theme.Header.Width(max(m.width, 20)).Render(b.String())
}

// renderAvatar draws the newest frame, or the playback status when there is
// nothing to play.
func (m Model) renderAvatar() string {
	innerW := AvatarPanelWidth - avatarChrome
	innerH := max(m.viewport.Height-3, 1) // border + caption

	frame := m.avatarFrame
	status := m.player.Status()
	if status != avatar.StatusPlaying {
		frame = ""
	}

	content := util.FitBlock(frame, innerW, innerH) + "\n" +
		m.theme.AvatarCaption.Render(util.FitWidth(status, innerW))
	return m.theme.AvatarPanel.Render(content)
}

// renderStatusBar shows the presenter status, the user and the key hints.
func (m Model) renderStatusBar() string {
	line := m.presenter.Status()
	if m.userID != "" {
		line += " │ user " + m.userID
	}
	line += " │ " + m.keys.HelpLine()
	return m.theme.HelpText.Render(util.TruncateWidth(line, max(m.width, 20)))
}
