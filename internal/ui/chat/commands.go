// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements the slash command registry.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"

	"github.com/jeranaias/relaychat/internal/model"
)

// =============================================================================
// COMMAND PARSING
// =============================================================================

// CommandPrefix starts every slash command.
const CommandPrefix = "/"

// ParseCommand splits "/name arg arg" into its lowercased name and args.
// ok is false when input is not a command.
func ParseCommand(input string) (name string, args []string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, CommandPrefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(input, CommandPrefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// CommandHelp maps each command to a one-line description.
var CommandHelp = map[string]string{
	"clear":   "clear the local transcript",
	"reset":   "clear the transcript and the server-side history",
	"history": "show the server-side history",
	"help":    "list commands",
}

// HelpText lists every command, sorted by name.
func HelpText() string {
	names := make([]string, 0, len(CommandHelp))
	for name := range CommandHelp {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Commands:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n  /%-8s %s", name, CommandHelp[name])
	}
	return b.String()
}

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) tea.Cmd

// commandHandlers maps command names to their handler functions.
var commandHandlers = map[string]CommandHandler{
	"clear":   handleClearCommand,
	"c":       handleClearCommand,
	"reset":   handleResetCommand,
	"history": handleHistoryCommand,
	"hist":    handleHistoryCommand,
	"help":    handleHelpCommand,
	"h":       handleHelpCommand,
	"?":       handleHelpCommand,
}

// runCommand dispatches a parsed command.
func (m *Model) runCommand(name string, args []string) tea.Cmd {
	handler, ok := commandHandlers[name]
	if !ok {
		m.presenter.AddSystemMessage(fmt.Sprintf("Unknown command /%s. Type /help for a list.", name))
		return nil
	}
	return handler(m, args)
}

func handleClearCommand(m *Model, _ []string) tea.Cmd {
	m.presenter.Clear()
	return nil
}

func handleResetCommand(m *Model, _ []string) tea.Cmd {
	m.presenter.Clear()
	backend := m.backend
	return func() tea.Msg {
		return HistoryClearedMsg{Err: backend.ClearHistory(context.Background())}
	}
}

func handleHistoryCommand(m *Model, _ []string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		turns, err := backend.History(context.Background())
		return HistoryMsg{Turns: turns, Err: err}
	}
}

func handleHelpCommand(m *Model, _ []string) tea.Cmd {
	m.presenter.AddSystemMessage(HelpText() + "\nKeys: " + m.keys.HelpLine())
	return nil
}

// =============================================================================
// HISTORY RENDERING
// =============================================================================

// HistoryMarkdown formats turns as a markdown document.
func HistoryMarkdown(turns []model.Turn, assistantName string) string {
	if len(turns) == 0 {
		return "No history stored on the server."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Server history (%d turns)\n", len(turns))
	for i, t := range turns {
		fmt.Fprintf(&b, "\n### %d. %s\n\n", i+1, t.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "**%s:** %s\n\n", UserName, t.UserText)
		fmt.Fprintf(&b, "**%s:** %s\n", assistantName, t.AIText)
	}
	return b.String()
}

// RenderMarkdown renders md with glamour, wrapped to width.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourstyles.NoTTYStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// FormatHistory renders turns for display, falling back to the raw
// markdown if rendering fails.
func FormatHistory(turns []model.Turn, assistantName string, width int) string {
	md := HistoryMarkdown(turns, assistantName)
	if out, err := RenderMarkdown(md, width); err == nil && strings.TrimSpace(out) != "" {
		return out
	}
	return md
}
