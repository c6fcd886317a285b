// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// sidebarWidth is the width of the conversation list including its border.
const sidebarWidth = 28

// Session is the part of the session manager the view uses.
type Session interface {
	User() (model.User, bool)
	RecordActivity()
	HandleTick(ctx context.Context) tea.Cmd
}

// focus selects which pane receives keys.
type focus int

const (
	focusInput focus = iota
	focusSidebar
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	engine  *chatsync.Engine
	store   *store.Store
	session Session
	logger  zerolog.Logger

	theme    *styles.Theme
	render   *renderer
	keys     KeyMap
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Store notifications, coalesced to one pending signal
	changes     chan struct{}
	unsubscribe func()
	ops         *cancelManager

	// Dimensions
	width  int
	height int

	// Snapshot of the store taken on every change
	convs    []model.Conversation
	active   model.ID
	messages []model.Message
	version  uint64

	focus    focus
	selected int
	sending  int
	loading  bool
	status   string
	lastErr  error
	showHelp bool
}

// Option configures a Model.
type Option func(*Model)

// WithSession shows the logged-in user and drives the idle timeout.
func WithSession(s Session) Option {
	return func(m *Model) { m.session = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithMarkdown toggles markdown rendering of replies and word wrapping.
func WithMarkdown(markdown, wordWrap bool) Option {
	return func(m *Model) {
		m.render.markdown = markdown
		m.render.wrap = wordWrap
	}
}

// New creates the chat view over an engine. Call Close when the program
// exits to detach from the store.
func New(engine *chatsync.Engine, theme *styles.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = theme.InputPrompt.Render("> ")
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	// ASCII-compatible spinner
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	m := Model{
		engine:   engine,
		store:    engine.Store(),
		logger:   zerolog.Nop(),
		theme:    theme,
		render:   newRenderer(theme, true, true),
		keys:     DefaultKeyMap(),
		viewport: vp,
		input:    ti,
		spinner:  sp,
		changes:  make(chan struct{}, 1),
		ops:      newCancelManager(),
		loading:  true,
	}
	for _, opt := range opts {
		opt(&m)
	}

	changes := m.changes
	m.unsubscribe = m.store.Subscribe(func(store.Change) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	m.sync()
	return m
}

// Close detaches the view from the store and cancels running operations.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.ops.cancelAll()
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the listeners and loads the conversation list.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spinner.Tick,
		waitForChange(m.changes),
		waitForEvent(m.engine.Events()),
		m.loadCmd(),
	}
	if m.session != nil {
		cmds = append(cmds, sessionTick())
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// STATE SNAPSHOT
// =============================================================================

// sync copies the store into the model and rebuilds the viewport.
func (m *Model) sync() {
	m.version = m.store.Version()
	m.convs = m.store.List()
	m.active, _ = m.store.Active()
	m.messages = nil
	if !m.active.IsZero() {
		m.messages = m.store.Messages(m.active)
	}

	if m.selected >= len(m.convs) {
		m.selected = len(m.convs) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.updateViewport()
}

// updateViewport re-renders the messages, following the bottom if the
// user had not scrolled away from it.
func (m *Model) updateViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.render.messages(m.messages, m.spinner.View()))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// busy reports whether a reply is pending or being played back.
func (m *Model) busy() bool {
	for _, msg := range m.messages {
		if msg.IsProvisional() || msg.IsPlaying() {
			return true
		}
	}
	return m.sending > 0
}

// selectedConversation returns the conversation under the sidebar cursor.
func (m *Model) selectedConversation() (model.Conversation, bool) {
	if m.selected < 0 || m.selected >= len(m.convs) {
		return model.Conversation{}, false
	}
	return m.convs[m.selected], true
}

// ActiveConversation returns the focused conversation ID.
func (m Model) ActiveConversation() model.ID {
	return m.active
}

// Status returns the current status line text.
func (m Model) Status() string {
	return m.status
}

// LastError returns the most recent error shown to the user.
func (m Model) LastError() error {
	return m.lastErr
}
