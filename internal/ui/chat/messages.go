// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// STORE AND ENGINE MESSAGES
// =============================================================================

// StoreChangedMsg signals that the store changed since the last render.
// Bursts of changes are coalesced into one message.
type StoreChangedMsg struct{}

// EngineEventMsg carries an event from background engine work.
type EngineEventMsg struct {
	Event chatsync.Event
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// SentMsg is the result of a send.
type SentMsg struct {
	ConversationID model.ID
	Content        string
	Err            error
}

// LoadedMsg is the result of loading the conversation list.
type LoadedMsg struct {
	Err error
}

// OpenedMsg is the result of opening a conversation.
type OpenedMsg struct {
	ConversationID model.ID
	Err            error
}

// CreatedMsg is the result of creating an empty conversation.
type CreatedMsg struct {
	Conversation model.Conversation
	Err          error
}

// DeletedMsg is the result of deleting a conversation.
type DeletedMsg struct {
	ConversationID model.ID
	Err            error
}
