// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// LISTENERS
// =============================================================================

// waitForChange blocks until the store reports a change.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return StoreChangedMsg{}
	}
}

// waitForEvent blocks until the engine emits an event.
func waitForEvent(events <-chan chatsync.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return EngineEventMsg{Event: ev}
	}
}

// =============================================================================
// ENGINE COMMANDS
// =============================================================================

func (m *Model) sendCmd(content string, conversationID model.ID) tea.Cmd {
	ctx, done := m.ops.begin()
	eng := m.engine
	return func() tea.Msg {
		defer done()
		id, err := eng.SendMessage(ctx, content, conversationID)
		if id.IsZero() {
			id = conversationID
		}
		return SentMsg{ConversationID: id, Content: content, Err: err}
	}
}

func (m *Model) loadCmd() tea.Cmd {
	ctx, done := m.ops.begin()
	eng := m.engine
	return func() tea.Msg {
		defer done()
		return LoadedMsg{Err: eng.Refresh(ctx)}
	}
}

func (m *Model) openCmd(id model.ID) tea.Cmd {
	ctx, done := m.ops.begin()
	eng := m.engine
	return func() tea.Msg {
		defer done()
		return OpenedMsg{ConversationID: id, Err: eng.OpenConversation(ctx, id)}
	}
}

func (m *Model) createCmd() tea.Cmd {
	ctx, done := m.ops.begin()
	eng := m.engine
	return func() tea.Msg {
		defer done()
		conv, err := eng.NewConversation(ctx, "")
		return CreatedMsg{Conversation: conv, Err: err}
	}
}

func (m *Model) deleteCmd(id model.ID) tea.Cmd {
	ctx, done := m.ops.begin()
	eng := m.engine
	return func() tea.Msg {
		defer done()
		return DeletedMsg{ConversationID: id, Err: eng.DeleteConversation(ctx, id)}
	}
}

// =============================================================================
// CANCEL MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager tracks the contexts of in-flight operations so they can be
// cancelled together. It must be used as a pointer so Bubble Tea's model
// copies share one instance.
type cancelManager struct {
	mu      sync.Mutex
	next    int
	cancels map[int]context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{cancels: make(map[int]context.CancelFunc)}
}

// begin returns a context for one operation and the func that releases it.
func (cm *cancelManager) begin() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	cm.mu.Lock()
	id := cm.next
	cm.next++
	cm.cancels[id] = cancel
	cm.mu.Unlock()

	return ctx, func() {
		cm.mu.Lock()
		delete(cm.cancels, id)
		cm.mu.Unlock()
		cancel()
	}
}

// cancelAll cancels every in-flight operation and returns how many there were.
func (cm *cancelManager) cancelAll() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	n := len(cm.cancels)
	for id, cancel := range cm.cancels {
		cancel()
		delete(cm.cancels, id)
	}
	return n
}

// inFlight returns the number of running operations.
func (cm *cancelManager) inFlight() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.cancels)
}
