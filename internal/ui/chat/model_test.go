// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/gateway"
	"github.com/jeranaias/rigchat/internal/gateway/gatewaytest"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/playback"
	"github.com/jeranaias/rigchat/internal/store"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

type harness struct {
	fake *gatewaytest.Fake
	st   *store.Store
	eng  *chatsync.Engine
	m    Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.New()
	fake := gatewaytest.New()
	sched := playback.NewScheduler(st, playback.WithInterval(time.Millisecond))
	eng := chatsync.New(st, fake, sched, chatsync.WithPlayback(false))
	t.Cleanup(eng.Close)

	m := New(eng, styles.NewTheme("dark"), WithMarkdown(false, true))
	t.Cleanup(m.Close)

	h := &harness{fake: fake, st: st, eng: eng, m: m}
	h.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// update feeds msg to the model and returns the resulting command.
func (h *harness) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

// runCmd executes cmd and feeds its message back into the model.
func (h *harness) runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	h.update(msg)
	return msg
}

func (h *harness) typeText(s string) {
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) press(k tea.KeyType) tea.Cmd {
	return h.update(tea.KeyMsg{Type: k})
}

func (h *harness) synced() {
	h.update(StoreChangedMsg{})
}

// =============================================================================
// SENDING
// =============================================================================

func TestModel_SendCreatesConversation(t *testing.T) {
	h := newHarness(t)
	h.fake.SetReply(func(string) string { return "Hi there" })

	h.typeText("Hello")
	cmd := h.press(tea.KeyEnter)
	assert.Equal(t, "", h.m.input.Value(), "input clears on send")
	assert.Equal(t, 1, h.m.sending)

	msg := h.runCmd(t, cmd)
	sent, ok := msg.(SentMsg)
	require.True(t, ok)
	require.NoError(t, sent.Err)
	assert.Equal(t, model.CanonicalID(1), sent.ConversationID)
	assert.Equal(t, 0, h.m.sending)

	h.eng.Wait()
	h.synced()

	assert.Equal(t, model.CanonicalID(1), h.m.ActiveConversation())
	require.Len(t, h.m.messages, 2)
	assert.Equal(t, "Hello", h.m.messages[0].Content)
	assert.Equal(t, "Hi there", h.m.messages[1].Content)

	view := h.m.View()
	assert.Contains(t, view, "Hello")
	assert.Contains(t, view, "Hi there")
}

func TestModel_SendToActiveConversation(t *testing.T) {
	h := newHarness(t)
	conv := h.fake.Seed("Existing", "first", "reply")
	require.NoError(t, h.eng.OpenConversation(context.Background(), conv.ID))
	h.synced()
	require.Len(t, h.m.messages, 2)

	h.typeText("again")
	h.runCmd(t, h.press(tea.KeyEnter))
	h.synced()

	require.Len(t, h.m.messages, 4)
	assert.Equal(t, "Echo: again", h.m.messages[3].Content)
	assert.Nil(t, h.m.LastError())
}

func TestModel_SendFailureRestoresDraft(t *testing.T) {
	h := newHarness(t)
	conv := h.fake.Seed("Existing")
	require.NoError(t, h.eng.OpenConversation(context.Background(), conv.ID))
	h.synced()
	h.fake.FailWith(gatewaytest.OpSend, &gateway.APIError{Status: 500, Detail: "boom"})

	h.typeText("X")
	msg := h.runCmd(t, h.press(tea.KeyEnter))
	h.synced()

	sent := msg.(SentMsg)
	assert.ErrorIs(t, sent.Err, chatsync.ErrSendFailed)
	assert.Empty(t, h.m.messages, "rolled back")
	assert.Equal(t, "X", h.m.input.Value())
	assert.Error(t, h.m.LastError())
	assert.Contains(t, h.m.Status(), "message not sent")
}

func TestModel_BackgroundFailureEvent(t *testing.T) {
	h := newHarness(t)
	h.fake.FailWith(gatewaytest.OpSend, &gateway.APIError{Status: 429, Detail: "quota"})

	h.typeText("new chat")
	msg := h.runCmd(t, h.press(tea.KeyEnter))
	require.NoError(t, msg.(SentMsg).Err, "new conversation sends finish in the background")

	h.eng.Wait()
	ev := waitForEvent(h.eng.Events())()
	h.update(ev)

	assert.Equal(t, "new chat", h.m.input.Value())
	assert.Contains(t, h.m.Status(), "quota exceeded")
}

func TestModel_EmptyInputDoesNothing(t *testing.T) {
	h := newHarness(t)
	h.typeText("   ")
	assert.Nil(t, h.press(tea.KeyEnter))
	assert.Equal(t, 0, h.m.sending)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func TestModel_SidebarOpenAndDelete(t *testing.T) {
	h := newHarness(t)
	h.fake.Seed("Older", "a", "b")
	h.fake.Seed("Newer", "c", "d")
	require.NoError(t, h.eng.LoadConversations(context.Background()))
	h.synced()
	require.Len(t, h.m.convs, 2)

	h.press(tea.KeyTab)
	assert.Equal(t, focusSidebar, h.m.focus)

	h.press(tea.KeyDown)
	assert.Equal(t, 1, h.m.selected)
	target := h.m.convs[1].ID

	msg := h.runCmd(t, h.press(tea.KeyEnter))
	require.NoError(t, msg.(OpenedMsg).Err)
	h.synced()
	assert.Equal(t, target, h.m.ActiveConversation())
	assert.Len(t, h.m.messages, 2)
	assert.Equal(t, focusInput, h.m.focus, "opening returns focus to the input")

	h.press(tea.KeyTab)
	msg = h.runCmd(t, h.press(tea.KeyDelete))
	require.NoError(t, msg.(DeletedMsg).Err)
	h.synced()

	assert.Len(t, h.m.convs, 1)
	assert.True(t, h.m.ActiveConversation().IsZero())
	_, ok := h.fake.Conversation(target)
	assert.False(t, ok)
}

func TestModel_NewChatKey(t *testing.T) {
	h := newHarness(t)
	msg := h.runCmd(t, h.press(tea.KeyCtrlN))
	created := msg.(CreatedMsg)
	require.NoError(t, created.Err)
	h.synced()

	assert.Equal(t, created.Conversation.ID, h.m.ActiveConversation())
	assert.Equal(t, model.DefaultTitle, h.m.convs[0].Title)
}

func TestModel_LoadFailureShowsError(t *testing.T) {
	h := newHarness(t)
	h.fake.FailWith(gatewaytest.OpList, fmt.Errorf("%w: refused", gateway.ErrTransport))

	h.runCmd(t, h.m.loadCmd())
	assert.False(t, h.m.loading)
	assert.Contains(t, h.m.Status(), "unreachable")
}

// =============================================================================
// LISTENERS AND CANCELLATION
// =============================================================================

func TestModel_StoreChangesAreForwarded(t *testing.T) {
	h := newHarness(t)
	h.st.InsertConversation(model.Conversation{ID: model.CanonicalID(9), Title: "pushed"})

	msg := waitForChange(h.m.changes)()
	assert.IsType(t, StoreChangedMsg{}, msg)

	cmd := h.update(msg)
	assert.NotNil(t, cmd, "listener re-arms")
	require.Len(t, h.m.convs, 1)
	assert.Equal(t, "pushed", h.m.convs[0].Title)
}

func TestModel_EscCancelsPendingSend(t *testing.T) {
	h := newHarness(t)
	conv := h.fake.Seed("Existing")
	require.NoError(t, h.eng.OpenConversation(context.Background(), conv.ID))
	h.synced()
	release := h.fake.Block(gatewaytest.OpSend)
	defer release()

	h.typeText("slow")
	cmd := h.press(tea.KeyEnter)

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case <-h.fake.Entered():
	case <-time.After(5 * time.Second):
		t.Fatal("send never reached the gateway")
	}

	assert.Equal(t, 1, h.m.ops.inFlight())
	h.press(tea.KeyEsc)

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("send was not cancelled")
	}
	h.update(msg)
	h.synced()

	assert.ErrorIs(t, msg.(SentMsg).Err, context.Canceled)
	assert.Equal(t, "Send cancelled", h.m.Status())
	assert.Equal(t, "slow", h.m.input.Value())
	assert.Empty(t, h.m.messages)
}

func TestModel_QuitKey(t *testing.T) {
	h := newHarness(t)
	cmd := h.press(tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_HelpToggle(t *testing.T) {
	h := newHarness(t)
	h.press(tea.KeyF1)
	assert.Contains(t, h.m.View(), "skip playback")
	h.press(tea.KeyF1)
	assert.False(t, h.m.showHelp)
}

func TestCancelManager(t *testing.T) {
	cm := newCancelManager()
	ctx1, done1 := cm.begin()
	ctx2, _ := cm.begin()
	assert.Equal(t, 2, cm.inFlight())

	done1()
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.Equal(t, 1, cm.inFlight())

	assert.Equal(t, 1, cm.cancelAll())
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
	assert.Equal(t, 0, cm.inFlight())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{chatsync.ErrNoIdentity, "you are not logged in"},
		{&gateway.APIError{Status: 401}, "you are not logged in"},
		{&gateway.APIError{Status: 429}, "message quota exceeded, try again later"},
		{&gateway.APIError{Status: 404}, "the conversation no longer exists"},
		{fmt.Errorf("%w: dial tcp", gateway.ErrTransport), "the chat service is unreachable"},
		{errors.New("odd"), "odd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describe(tt.err))
	}
}
