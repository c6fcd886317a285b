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
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/gateway"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/util"
)

func sessionTick() tea.Cmd {
	return session.TickCmd()
}

// Update handles a message and returns the next model and command.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		if m.session != nil {
			m.session.RecordActivity()
		}
		return m.handleKey(msg)

	case StoreChangedMsg:
		m.sync()
		return m, waitForChange(m.changes)

	case EngineEventMsg:
		m.handleEvent(msg.Event)
		return m, waitForEvent(m.engine.Events())

	case SentMsg:
		return m.handleSent(msg)

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.setError("could not load conversations", msg.Err)
		}
		return m, nil

	case OpenedMsg:
		m.loading = false
		if msg.Err != nil {
			m.setError("could not open conversation", msg.Err)
		} else {
			m.clearError()
		}
		return m, nil

	case CreatedMsg:
		if msg.Err != nil {
			m.setError("could not create conversation", msg.Err)
			return m, nil
		}
		m.clearError()
		m.focusInput()
		return m, nil

	case DeletedMsg:
		if msg.Err != nil {
			m.setError("delete failed on the server", msg.Err)
		} else {
			m.status = "Conversation deleted"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			m.updateViewport()
		}
		return m, cmd

	case session.TickMsg:
		if m.session == nil {
			return m, nil
		}
		return m, m.session.HandleTick(context.Background())

	case session.TimeoutWarningMsg:
		m.status = fmt.Sprintf("Session expires in %s without activity", msg.Remaining.Round(time.Second))
		return m, nil

	case session.TimeoutMsg:
		m.status = "Session timed out"
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	mainWidth := m.mainWidth()
	// header (1) + input (2) + status (1)
	vpHeight := m.height - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = mainWidth
	m.viewport.Height = vpHeight
	m.input.Width = mainWidth - 4
	m.render.setWidth(mainWidth)
	m.updateViewport()
	return m, nil
}

// mainWidth is the width left for messages beside the sidebar.
func (m *Model) mainWidth() int {
	w := m.width - sidebarWidth - 1
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ops.cancelAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.focusSidebar()
		} else {
			m.focusInput()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.status = "Creating conversation..."
		return m, m.createCmd()

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.loadCmd()

	case key.Matches(msg, m.keys.Cancel):
		if n := m.ops.cancelAll(); n > 0 {
			m.status = "Cancelled"
		}
		return m, nil

	case key.Matches(msg, m.keys.SkipReplies):
		if !m.active.IsZero() {
			m.engine.SkipPlayback(m.active)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		content := m.input.Value()
		if strings.TrimSpace(content) == "" {
			return m, nil
		}
		m.input.Reset()
		m.sending++
		m.clearError()
		m.status = "Sending..."
		return m, m.sendCmd(content, m.active)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.convs)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Open):
		conv, ok := m.selectedConversation()
		if !ok {
			return m, nil
		}
		m.loading = true
		m.focusInput()
		return m, m.openCmd(conv.ID)
	case key.Matches(msg, m.keys.Delete):
		conv, ok := m.selectedConversation()
		if !ok {
			return m, nil
		}
		m.status = fmt.Sprintf("Deleting %q...", util.TruncateRunes(conv.Title, 20))
		return m, m.deleteCmd(conv.ID)
	}
	return m, nil
}

func (m *Model) focusInput() {
	m.focus = focusInput
	m.input.Focus()
}

func (m *Model) focusSidebar() {
	m.focus = focusSidebar
	m.input.Blur()
	for i, c := range m.convs {
		if c.ID == m.active {
			m.selected = i
			break
		}
	}
}

// =============================================================================
// RESULTS AND EVENTS
// =============================================================================

func (m Model) handleSent(msg SentMsg) (tea.Model, tea.Cmd) {
	if m.sending > 0 {
		m.sending--
	}
	if msg.Err == nil {
		m.status = ""
		return m, nil
	}

	// The draft comes back so it can be edited and resent.
	if m.input.Value() == "" {
		m.input.SetValue(msg.Content)
		m.input.CursorEnd()
	}
	switch {
	case errors.Is(msg.Err, context.Canceled):
		m.status = "Send cancelled"
	default:
		m.setError("message not sent", msg.Err)
	}
	return m, nil
}

func (m *Model) handleEvent(ev chatsync.Event) {
	switch ev.Kind {
	case chatsync.EventReplyReady:
		m.logger.Debug().Stringer("conversation", ev.ConversationID).Msg("reply ready")
	case chatsync.EventSendFailed:
		if m.input.Value() == "" {
			m.input.SetValue(ev.Content)
			m.input.CursorEnd()
		}
		m.setError("message not sent", ev.Err)
	case chatsync.EventDeleteFailed:
		m.setError("delete failed on the server", ev.Err)
	}
}

// setError shows err with a short explanation of what failed.
func (m *Model) setError(what string, err error) {
	m.lastErr = err
	m.status = what + ": " + describe(err)
}

func (m *Model) clearError() {
	m.lastErr = nil
}

// describe turns engine and gateway errors into a user-facing sentence.
func describe(err error) string {
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, chatsync.ErrNoIdentity), errors.Is(err, gateway.ErrUnauthorized):
		return "you are not logged in"
	case errors.Is(err, gateway.ErrQuotaExceeded):
		return "message quota exceeded, try again later"
	case errors.Is(err, gateway.ErrNotFound):
		return "the conversation no longer exists"
	case errors.Is(err, gateway.ErrTransport):
		return "the chat service is unreachable"
	case errors.As(err, &apiErr):
		return apiErr.Message()
	case errors.Is(err, chatsync.ErrEmptyContent):
		return "message is empty"
	default:
		return err.Error()
	}
}
