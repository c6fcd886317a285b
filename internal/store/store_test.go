// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
)

func newConv(id int64, title string) model.Conversation {
	return model.Conversation{ID: model.CanonicalID(id), Title: title}
}

func provisional(role model.Role, content string) model.Message {
	return model.Message{ID: model.NewProvisionalID(), Role: role, Content: content}
}

func canonical(id int64, conv model.ID, role model.Role, content string) model.Message {
	return model.Message{ID: model.CanonicalID(id), ConversationID: conv, Role: role, Content: content}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestStore_InsertOrdersNewestFirst(t *testing.T) {
	s := New()
	s.InsertConversation(newConv(1, "one"))
	s.InsertConversation(newConv(2, "two"))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Title)
	assert.Equal(t, "one", list[1].Title)
}

func TestStore_InsertReplacesExisting(t *testing.T) {
	s := New()
	s.InsertConversation(newConv(1, "old"))
	s.InsertConversation(newConv(2, "two"))
	s.InsertConversation(newConv(1, "new"))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Title)
}

func TestStore_ReplaceAllDropsStaleEntries(t *testing.T) {
	s := New()
	s.InsertConversation(newConv(1, "stale"))
	require.True(t, s.SetActive(model.CanonicalID(1)))

	s.ReplaceAll([]model.Conversation{newConv(3, "c"), newConv(2, "b")})

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Title)
	_, ok := s.Get(model.CanonicalID(1))
	assert.False(t, ok)
	_, active := s.Active()
	assert.False(t, active, "active pointer must not outlive its conversation")
}

func TestStore_RemoveClearsActive(t *testing.T) {
	s := New()
	s.InsertConversation(newConv(1, "a"))
	s.InsertConversation(newConv(2, "b"))
	require.True(t, s.SetActive(model.CanonicalID(1)))

	assert.True(t, s.RemoveConversation(model.CanonicalID(1)))
	_, active := s.Active()
	assert.False(t, active)

	require.True(t, s.SetActive(model.CanonicalID(2)))
	assert.False(t, s.RemoveConversation(model.CanonicalID(1)), "second removal is a no-op")
	id, active := s.Active()
	assert.True(t, active)
	assert.Equal(t, model.CanonicalID(2), id)
}

func TestStore_SetActiveUnknownIsNoop(t *testing.T) {
	s := New()
	assert.False(t, s.SetActive(model.CanonicalID(9)))
}

func TestStore_ListReturnsSnapshot(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)
	s.AppendProvisional(conv.ID, provisional(model.RoleUser, "hi"))

	list := s.List()
	list[0].Messages[0].Content = "mutated"
	list[0].Title = "mutated"

	got, ok := s.Get(conv.ID)
	require.True(t, ok)
	assert.Equal(t, "a", got.Title)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestStore_Clear(t *testing.T) {
	s := New()
	s.InsertConversation(newConv(1, "a"))
	s.SetActive(model.CanonicalID(1))
	s.Clear()

	assert.Equal(t, 0, s.Len())
	_, active := s.Active()
	assert.False(t, active)
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestStore_AppendProvisionalTouchesConversation(t *testing.T) {
	s := New()
	s.InsertConversation(newConv(1, "old"))
	s.InsertConversation(newConv(2, "new"))

	require.True(t, s.AppendProvisional(model.CanonicalID(1), provisional(model.RoleUser, "x")))

	list := s.List()
	assert.Equal(t, "old", list[0].Title)
	assert.Equal(t, model.CanonicalID(1), list[0].Messages[0].ConversationID)
}

func TestStore_AppendProvisionalRejects(t *testing.T) {
	s := New()
	s.InsertConversation(newConv(1, "a"))

	assert.False(t, s.AppendProvisional(model.CanonicalID(2), provisional(model.RoleUser, "x")), "unknown conversation")
	assert.False(t, s.AppendProvisional(model.CanonicalID(1), canonical(5, model.CanonicalID(1), model.RoleUser, "x")), "canonical id")
	assert.Empty(t, s.Messages(model.CanonicalID(1)))
}

func TestStore_ReconcileReplacesPair(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)
	tu := provisional(model.RoleUser, "Hello")
	ta := provisional(model.RoleAssistant, "")
	s.AppendProvisional(conv.ID, tu)
	s.AppendProvisional(conv.ID, ta)

	user := canonical(1, conv.ID, model.RoleUser, "Hello")
	assistant := canonical(2, conv.ID, model.RoleAssistant, "Hi there")
	assistant.Playback = &model.Playback{Playing: true}

	require.True(t, s.Reconcile(conv.ID, tu.ID, ta.ID, user, assistant))

	msgs := s.Messages(conv.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.CanonicalID(1), msgs[0].ID)
	assert.Equal(t, model.CanonicalID(2), msgs[1].ID)
	assert.True(t, msgs[1].IsPlaying())
	assert.Equal(t, "", msgs[1].DisplayContent())

	v := s.Version()
	assert.False(t, s.Reconcile(conv.ID, tu.ID, ta.ID, user, assistant), "duplicate reconcile is a no-op")
	assert.Equal(t, v, s.Version())
	assert.Len(t, s.Messages(conv.ID), 2)
}

func TestStore_ReconcileKeepsOtherProvisionalAtTail(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)

	aU, aA := provisional(model.RoleUser, "A"), provisional(model.RoleAssistant, "")
	bU, bA := provisional(model.RoleUser, "B"), provisional(model.RoleAssistant, "")
	for _, m := range []model.Message{aU, aA, bU, bA} {
		s.AppendProvisional(conv.ID, m)
	}

	// B resolves first.
	require.True(t, s.Reconcile(conv.ID, bU.ID, bA.ID,
		canonical(1, conv.ID, model.RoleUser, "B"),
		canonical(2, conv.ID, model.RoleAssistant, "rB")))

	msgs := s.Messages(conv.ID)
	require.Len(t, msgs, 4)
	assert.Equal(t, model.CanonicalID(1), msgs[0].ID)
	assert.Equal(t, model.CanonicalID(2), msgs[1].ID)
	assert.Equal(t, aU.ID, msgs[2].ID)
	assert.Equal(t, aA.ID, msgs[3].ID)

	require.True(t, s.Reconcile(conv.ID, aU.ID, aA.ID,
		canonical(3, conv.ID, model.RoleUser, "A"),
		canonical(4, conv.ID, model.RoleAssistant, "rA")))

	msgs = s.Messages(conv.ID)
	require.Len(t, msgs, 4)
	for i, want := range []int64{1, 2, 3, 4} {
		assert.Equal(t, model.CanonicalID(want), msgs[i].ID)
	}
}

func TestStore_ReconcileSupersedesOlderPlayback(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)

	old := canonical(2, conv.ID, model.RoleAssistant, "first reply")
	old.Playback = &model.Playback{Playing: true, Revealed: "first"}
	s.SetMessages(conv.ID, []model.Message{canonical(1, conv.ID, model.RoleUser, "q"), old})

	tu, ta := provisional(model.RoleUser, "q2"), provisional(model.RoleAssistant, "")
	s.AppendProvisional(conv.ID, tu)
	s.AppendProvisional(conv.ID, ta)

	next := canonical(4, conv.ID, model.RoleAssistant, "second reply")
	next.Playback = &model.Playback{Playing: true}
	require.True(t, s.Reconcile(conv.ID, tu.ID, ta.ID, canonical(3, conv.ID, model.RoleUser, "q2"), next))

	assert.False(t, s.UpdatePlayback(conv.ID, old.ID, "first reply", true), "superseded playback stops")
	msgs := s.Messages(conv.ID)
	assert.Nil(t, msgs[1].Playback)
	assert.Equal(t, "first reply", msgs[1].DisplayContent())
}

func TestStore_ReconcileMissingTempIsNoop(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)
	tu := provisional(model.RoleUser, "x")
	s.AppendProvisional(conv.ID, tu)

	ok := s.Reconcile(conv.ID, tu.ID, model.NewProvisionalID(),
		canonical(1, conv.ID, model.RoleUser, "x"),
		canonical(2, conv.ID, model.RoleAssistant, "y"))
	assert.False(t, ok)
	assert.Len(t, s.Messages(conv.ID), 1)

	assert.False(t, s.Reconcile(model.CanonicalID(99), tu.ID, tu.ID, model.Message{}, model.Message{}))
}

func TestStore_RollbackRestoresCount(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)
	s.SetMessages(conv.ID, []model.Message{canonical(1, conv.ID, model.RoleUser, "a")})

	tu, ta := provisional(model.RoleUser, "x"), provisional(model.RoleAssistant, "")
	s.AppendProvisional(conv.ID, tu)
	s.AppendProvisional(conv.ID, ta)

	assert.Equal(t, 2, s.RollbackProvisional(conv.ID, tu.ID, ta.ID))
	msgs := s.Messages(conv.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.CanonicalID(1), msgs[0].ID)

	assert.Equal(t, 0, s.RollbackProvisional(conv.ID, tu.ID, ta.ID))
	assert.Equal(t, 0, s.RollbackProvisional(conv.ID, model.CanonicalID(1)), "canonical ids are never rolled back")
}

func TestStore_UpdatePlayback(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)
	msg := canonical(2, conv.ID, model.RoleAssistant, "Hi there")
	msg.Playback = &model.Playback{Playing: true}
	s.SetMessages(conv.ID, []model.Message{msg})

	require.True(t, s.UpdatePlayback(conv.ID, msg.ID, "Hi", true))
	assert.Equal(t, "Hi", s.Messages(conv.ID)[0].DisplayContent())

	require.True(t, s.UpdatePlayback(conv.ID, msg.ID, "Hi there", false))
	got := s.Messages(conv.ID)[0]
	assert.Nil(t, got.Playback)
	assert.Equal(t, "Hi there", got.DisplayContent())

	assert.False(t, s.UpdatePlayback(conv.ID, msg.ID, "Hi", true), "finished playback cannot restart")
	assert.False(t, s.UpdatePlayback(conv.ID, model.CanonicalID(42), "x", true))

	s.RemoveConversation(conv.ID)
	assert.False(t, s.UpdatePlayback(conv.ID, msg.ID, "x", true))
}

// =============================================================================
// NOTIFICATION TESTS
// =============================================================================

func TestStore_SubscribeNotifiesOutsideLock(t *testing.T) {
	s := New()
	var got []Change
	unsubscribe := s.Subscribe(func(c Change) {
		// Reading the store from a callback must not deadlock.
		_ = s.List()
		got = append(got, c)
	})

	s.InsertConversation(newConv(1, "a"))
	s.SetActive(model.CanonicalID(1))
	s.SetActive(model.CanonicalID(1)) // no change
	s.RemoveConversation(model.CanonicalID(7))

	require.Len(t, got, 2)
	assert.Equal(t, ChangeInserted, got[0].Kind)
	assert.Equal(t, ChangeActive, got[1].Kind)
	assert.Equal(t, uint64(2), got[1].Version)

	unsubscribe()
	unsubscribe()
	s.Clear()
	assert.Len(t, got, 2)
}

func TestStore_ConcurrentMutations(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tu, ta := provisional(model.RoleUser, "q"), provisional(model.RoleAssistant, "")
			s.AppendProvisional(conv.ID, tu)
			s.AppendProvisional(conv.ID, ta)
			if i%2 == 0 {
				s.RollbackProvisional(conv.ID, tu.ID, ta.ID)
				return
			}
			s.Reconcile(conv.ID, tu.ID, ta.ID,
				canonical(int64(2*i), conv.ID, model.RoleUser, "q"),
				canonical(int64(2*i+1), conv.ID, model.RoleAssistant, "a"))
		}(i)
	}
	wg.Wait()

	got, ok := s.Get(conv.ID)
	require.True(t, ok)
	assert.Len(t, got.Messages, 50)
	assert.False(t, got.HasProvisional())
}

func TestChangeKind_String(t *testing.T) {
	assert.Equal(t, "reconciled", ChangeReconciled.String())
	assert.Equal(t, "unknown", ChangeKind(99).String())
}

func TestStore_ReconcileDropsDuplicateCanonical(t *testing.T) {
	s := New()
	conv := newConv(1, "a")
	s.InsertConversation(conv)
	tu, ta := provisional(model.RoleUser, "q"), provisional(model.RoleAssistant, "")
	user := canonical(1, conv.ID, model.RoleUser, "q")
	assistant := canonical(2, conv.ID, model.RoleAssistant, "r")

	// A refresh landed the canonical pair ahead of the provisional one.
	s.SetMessages(conv.ID, []model.Message{user, assistant, tu, ta})

	require.True(t, s.Reconcile(conv.ID, tu.ID, ta.ID, user, assistant))
	msgs := s.Messages(conv.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, user.ID, msgs[0].ID)
	assert.Equal(t, assistant.ID, msgs[1].ID)
}
