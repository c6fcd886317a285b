// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// CHANGE NOTIFICATIONS
// =============================================================================

// ChangeKind describes what a mutation did.
type ChangeKind int

const (
	ChangeReplaced ChangeKind = iota
	ChangeInserted
	ChangeRemoved
	ChangeMessages
	ChangeReconciled
	ChangeRolledBack
	ChangePlayback
	ChangeActive
	ChangeCleared
)

var changeKindNames = [...]string{
	ChangeReplaced:   "replaced",
	ChangeInserted:   "inserted",
	ChangeRemoved:    "removed",
	ChangeMessages:   "messages",
	ChangeReconciled: "reconciled",
	ChangeRolledBack: "rolled_back",
	ChangePlayback:   "playback",
	ChangeActive:     "active",
	ChangeCleared:    "cleared",
}

// String returns the name of the change kind.
func (k ChangeKind) String() string {
	if int(k) < len(changeKindNames) {
		return changeKindNames[k]
	}
	return "unknown"
}

// Change is delivered to subscribers after every effective mutation.
type Change struct {
	Kind           ChangeKind
	ConversationID model.ID
	Version        uint64
}

// =============================================================================
// STORE
// =============================================================================

// Store is the mutex-guarded conversation store.
// Conversations are kept most-recently created or touched first.
type Store struct {
	mu sync.Mutex

	convs   []*model.Conversation
	active  model.ID
	version uint64

	subs   map[int]func(Change)
	nextID int
}

// New creates an empty store.
func New() *Store {
	return &Store{subs: make(map[int]func(Change))}
}

// Subscribe registers fn to be called after every effective mutation.
// fn runs outside the store lock and may read the store.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Version returns a counter bumped by every effective mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// commit bumps the version and snapshots the subscribers. Caller holds s.mu.
func (s *Store) commit(kind ChangeKind, convID model.ID) (Change, []func(Change)) {
	s.version++
	c := Change{Kind: kind, ConversationID: convID, Version: s.version}
	if len(s.subs) == 0 {
		return c, nil
	}
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return c, fns
}

func notify(c Change, fns []func(Change)) {
	for _, fn := range fns {
		fn(c)
	}
}

// mutate runs fn under the lock and notifies subscribers when fn reports a change.
func (s *Store) mutate(kind ChangeKind, convID model.ID, fn func() bool) bool {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	c, fns := s.commit(kind, convID)
	s.mu.Unlock()

	notify(c, fns)
	return true
}

// find returns the index of the conversation. Caller holds s.mu.
func (s *Store) find(id model.ID) int {
	if id.IsZero() {
		return -1
	}
	for i, c := range s.convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// touch moves the conversation at index i to the head. Caller holds s.mu.
func (s *Store) touch(i int) {
	if i <= 0 {
		return
	}
	c := s.convs[i]
	copy(s.convs[1:i+1], s.convs[:i])
	s.convs[0] = c
}

// =============================================================================
// READS
// =============================================================================

// List returns a snapshot of all conversations, newest first.
func (s *Store) List() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// Get returns a snapshot of one conversation.
func (s *Store) Get(id model.ID) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return model.Conversation{}, false
	}
	return s.convs[i].Clone(), true
}

// Messages returns a snapshot of one conversation's messages.
func (s *Store) Messages(id model.ID) []model.Message {
	conv, ok := s.Get(id)
	if !ok {
		return nil
	}
	return conv.Messages
}

// Active returns the conversation the display is focused on.
func (s *Store) Active() (model.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, !s.active.IsZero()
}

// =============================================================================
// CONVERSATION MUTATIONS
// =============================================================================

// ReplaceAll replaces every conversation. Order is kept as given.
func (s *Store) ReplaceAll(convs []model.Conversation) {
	s.mutate(ChangeReplaced, model.ID{}, func() bool {
		s.convs = make([]*model.Conversation, 0, len(convs))
		for _, c := range convs {
			c := c.Clone()
			s.convs = append(s.convs, &c)
		}
		if s.find(s.active) < 0 {
			s.active = model.ID{}
		}
		return true
	})
}

// InsertConversation adds conv at the head, replacing any entry with the same ID.
func (s *Store) InsertConversation(conv model.Conversation) {
	s.mutate(ChangeInserted, conv.ID, func() bool {
		if i := s.find(conv.ID); i >= 0 {
			s.convs = append(s.convs[:i], s.convs[i+1:]...)
		}
		c := conv.Clone()
		s.convs = append([]*model.Conversation{&c}, s.convs...)
		return true
	})
}

// RemoveConversation deletes a conversation and clears the active pointer
// when it pointed at it. It reports whether anything was removed.
func (s *Store) RemoveConversation(id model.ID) bool {
	return s.mutate(ChangeRemoved, id, func() bool {
		i := s.find(id)
		if i < 0 {
			return false
		}
		s.convs = append(s.convs[:i], s.convs[i+1:]...)
		if s.active == id {
			s.active = model.ID{}
		}
		return true
	})
}

// SetActive focuses the display on an existing conversation.
func (s *Store) SetActive(id model.ID) bool {
	return s.mutate(ChangeActive, id, func() bool {
		if s.find(id) < 0 || s.active == id {
			return false
		}
		s.active = id
		return true
	})
}

// ClearActive unfocuses the display.
func (s *Store) ClearActive() {
	s.mutate(ChangeActive, model.ID{}, func() bool {
		if s.active.IsZero() {
			return false
		}
		s.active = model.ID{}
		return true
	})
}

// Clear drops all state. Used on session teardown.
func (s *Store) Clear() {
	s.mutate(ChangeCleared, model.ID{}, func() bool {
		s.convs = nil
		s.active = model.ID{}
		return true
	})
}

// =============================================================================
// MESSAGE MUTATIONS
// =============================================================================

// SetMessages replaces one conversation's messages wholesale.
func (s *Store) SetMessages(id model.ID, msgs []model.Message) bool {
	return s.mutate(ChangeMessages, id, func() bool {
		i := s.find(id)
		if i < 0 {
			return false
		}
		cp := make([]model.Message, len(msgs))
		for j := range msgs {
			cp[j] = msgs[j].Clone()
		}
		s.convs[i].Messages = cp
		return true
	})
}

// AppendProvisional appends a provisional message to the tail of a
// conversation and moves the conversation to the head of the list.
// It is a no-op when the conversation is gone or msg is not provisional.
func (s *Store) AppendProvisional(id model.ID, msg model.Message) bool {
	return s.mutate(ChangeMessages, id, func() bool {
		if !msg.ID.IsProvisional() {
			return false
		}
		i := s.find(id)
		if i < 0 {
			return false
		}
		msg = msg.Clone()
		msg.ConversationID = id
		s.convs[i].Messages = append(s.convs[i].Messages, msg)
		s.touch(i)
		return true
	})
}

// Reconcile swaps the provisional pair for the canonical pair in one step.
// The canonical messages land where the provisional block starts, so
// provisional entries of other in-flight sends stay contiguous at the tail.
// Copies of the canonical pair already present are dropped. It is a no-op
// when either provisional message is absent.
func (s *Store) Reconcile(id, tempUser, tempAssistant model.ID, user, assistant model.Message) bool {
	return s.mutate(ChangeReconciled, id, func() bool {
		i := s.find(id)
		if i < 0 {
			return false
		}
		conv := s.convs[i]
		if conv.IndexOf(tempUser) < 0 || conv.IndexOf(tempAssistant) < 0 {
			return false
		}

		kept := make([]model.Message, 0, len(conv.Messages))
		for _, m := range conv.Messages {
			if m.ID == tempUser || m.ID == tempAssistant {
				continue
			}
			// A refresh may already have loaded the canonical pair.
			if m.ID == user.ID || m.ID == assistant.ID {
				continue
			}
			if assistant.Playback != nil {
				m.Playback = nil
			}
			kept = append(kept, m)
		}

		at := len(kept)
		for j := range kept {
			if kept[j].IsProvisional() {
				at = j
				break
			}
		}

		msgs := make([]model.Message, 0, len(kept)+2)
		msgs = append(msgs, kept[:at]...)
		msgs = append(msgs, user.Clone(), assistant.Clone())
		msgs = append(msgs, kept[at:]...)
		conv.Messages = msgs
		return true
	})
}

// RollbackProvisional removes the named provisional messages and returns how
// many were removed. Canonical IDs are ignored.
func (s *Store) RollbackProvisional(id model.ID, tempIDs ...model.ID) int {
	removed := 0
	s.mutate(ChangeRolledBack, id, func() bool {
		i := s.find(id)
		if i < 0 {
			return false
		}
		conv := s.convs[i]
		kept := conv.Messages[:0]
		for _, m := range conv.Messages {
			if m.IsProvisional() && containsID(tempIDs, m.ID) {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		conv.Messages = kept
		return removed > 0
	})
	return removed
}

// UpdatePlayback sets the revealed text of a message that is being played.
// playing=false removes the playback state, leaving Content on display.
// It returns false when the conversation, the message or its playback state
// no longer exists; playback drivers stop on false.
func (s *Store) UpdatePlayback(id, msgID model.ID, revealed string, playing bool) bool {
	return s.mutate(ChangePlayback, id, func() bool {
		i := s.find(id)
		if i < 0 {
			return false
		}
		conv := s.convs[i]
		j := conv.IndexOf(msgID)
		if j < 0 {
			return false
		}
		msg := &conv.Messages[j]
		if msg.Playback == nil {
			return false
		}
		if !playing {
			msg.Playback = nil
			return true
		}
		msg.Playback = &model.Playback{Playing: true, Revealed: revealed}
		return true
	})
}

func containsID(ids []model.ID, id model.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
