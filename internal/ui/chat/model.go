// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relaychat/internal/api"
	"github.com/jeranaias/relaychat/internal/avatar"
	"github.com/jeranaias/relaychat/internal/client"
	"github.com/jeranaias/relaychat/internal/model"
	"github.com/jeranaias/relaychat/internal/sched"
	"github.com/jeranaias/relaychat/internal/ui/styles"
)

// Backend is the subset of the relay client the chat view needs.
type Backend interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
	Chat(ctx context.Context, message string) (*api.ChatResponse, error)
	History(ctx context.Context) ([]model.Turn, error)
	ClearHistory(ctx context.Context) error
}

// NotConnectedMessage is shown when the user sends before a successful
// connection test.
const NotConnectedMessage = "Not connected to the relay server. Press C-t to test the connection."

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat window.
type Model struct {
	theme     *styles.Theme
	keys      KeyMap
	backend   Backend
	sched     *sched.Tea
	presenter *Presenter
	player    *avatar.Player

	icon   string
	userID string

	viewport viewport.Model
	input    textinput.Model
	width    int
	height   int
	ready    bool

	// Connection state
	connected  bool
	checking   bool
	connStatus string
	pulse      int

	avatarFrame     string
	renderedVersion uint64
	stale           bool
	quitting        bool
}

// Options configures optional parts of the chat window.
type Options struct {
	AssistantName string
	UserID        string
	Icon          string
	Player        *avatar.Player
	Presenter     []PresenterOption
}

// New creates the chat model.
func New(theme *styles.Theme, backend Backend, opts Options) Model {
	if theme == nil {
		theme = styles.NewTheme()
	}
	s := sched.NewTea()

	input := textinput.New()
	input.Placeholder = "Type a message, /help for commands"
	input.Prompt = "❯ "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = 4000
	input.Focus()

	return Model{
		theme:      theme,
		keys:       DefaultKeyMap(),
		backend:    backend,
		sched:      s,
		presenter:  NewPresenter(s, opts.AssistantName, opts.Presenter...),
		player:     opts.Player,
		icon:       opts.Icon,
		userID:     opts.UserID,
		viewport:   viewport.New(80, 20),
		input:      input,
		checking:   true,
		connStatus: "Connecting...",
	}
}

// Presenter returns the presenter behind the view.
func (m Model) Presenter() *Presenter {
	return m.presenter
}

// Connected reports whether the last connection test succeeded.
func (m Model) Connected() bool {
	return m.connected
}

// Init starts the connection test, the status pulse and the avatar feed.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.testConnection(), pulse()}
	if m.player != nil {
		cmds = append(cmds, waitForFrame(m.player.Frames()))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model. Every path ends by
// draining the scheduler so timed reveal and indicator steps get started.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.syncViewport()
	return m, tea.Batch(cmd, m.sched.Drain())
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sched.FireMsg:
		msg.Run()
		return nil

	case HealthMsg:
		m.handleHealth(msg)
		return nil

	case ReplyMsg:
		m.handleReply(msg)
		return nil

	case HistoryMsg:
		if msg.Err != nil {
			m.presenter.AddSystemMessage(fmt.Sprintf("Could not fetch history: %v", msg.Err))
			return nil
		}
		m.presenter.AddSystemMessage(FormatHistory(msg.Turns, m.presenter.AssistantName(), m.viewport.Width-2))
		return nil

	case HistoryClearedMsg:
		if msg.Err != nil {
			m.presenter.AddSystemMessage(fmt.Sprintf("Could not clear server history: %v", msg.Err))
			return nil
		}
		m.presenter.AddSystemMessage("Server history cleared.")
		return nil

	case AvatarFrameMsg:
		m.avatarFrame = msg.Text
		if m.player == nil {
			return nil
		}
		return waitForFrame(m.player.Frames())

	case PulseMsg:
		m.pulse++
		return pulse()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// =============================================================================
// HANDLERS
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	w, h := m.transcriptSize()
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = max(10, msg.Width-8)
	m.ready = true
	m.stale = true
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.player != nil {
			m.player.Stop()
		}
		return tea.Quit

	case key.Matches(msg, m.keys.TestConnection):
		m.checking = true
		m.connStatus = "Testing connection..."
		return m.testConnection()

	case key.Matches(msg, m.keys.Clear):
		m.presenter.Clear()
		return nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// handleSubmit sends the input line or runs it as a command.
func (m *Model) handleSubmit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	if name, args, ok := ParseCommand(text); ok {
		m.input.Reset()
		return m.runCommand(name, args)
	}

	if !m.connected {
		m.presenter.AddSystemMessage(NotConnectedMessage)
		return nil
	}
	if m.presenter.Waiting() {
		return nil
	}

	m.input.Reset()
	m.presenter.AddUserMessage(text)
	m.presenter.BeginWaiting()
	return m.sendChat(text)
}

func (m *Model) handleHealth(msg HealthMsg) {
	m.checking = false
	if msg.Err != nil {
		m.connected = false
		m.connStatus = fmt.Sprintf("Connection failed: %v", msg.Err)
		return
	}
	m.connected = true
	m.connStatus = "Connected"
}

func (m *Model) handleReply(msg ReplyMsg) {
	if msg.Err != nil {
		if errors.Is(msg.Err, client.ErrConnection) {
			m.connected = false
			m.connStatus = "Connection lost"
		}
		m.presenter.ShowError(fmt.Sprintf("Request failed: %v", msg.Err))
		return
	}
	m.presenter.ShowReply(msg.Text)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) testConnection() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		resp, err := backend.Health(context.Background())
		if err != nil {
			return HealthMsg{Err: err}
		}
		return HealthMsg{Service: resp.Service}
	}
}

func (m *Model) sendChat(text string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		resp, err := backend.Chat(context.Background(), text)
		if err != nil {
			return ReplyMsg{Err: err}
		}
		return ReplyMsg{Text: resp.Response}
	}
}

func waitForFrame(frames <-chan avatar.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return nil
		}
		return AvatarFrameMsg(f)
	}
}

func pulse() tea.Cmd {
	return tea.Tick(styles.StatusPulse.Duration(), func(t time.Time) tea.Msg {
		return PulseMsg(t)
	})
}

// syncViewport re-renders the transcript when it changed and follows
// scroll requests.
func (m *Model) syncViewport() {
	tr := m.presenter.Transcript()
	if v := tr.Version(); m.stale || v != m.renderedVersion {
		m.viewport.SetContent(m.theme.Transcript.Width(m.viewport.Width).Render(m.theme.RenderSegments(tr.Segments())))
		m.renderedVersion = v
		m.stale = false
	}
	if tr.TakeScrollRequest() {
		m.viewport.GotoBottom()
	}
}
