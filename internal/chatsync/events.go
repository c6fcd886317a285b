// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatsync

import "github.com/jeranaias/rigchat/internal/model"

// EventKind identifies an engine event.
type EventKind int

const (
	// EventReplyReady fires when a background send finished. MessageID is
	// the reply, or zero when the conversation went away first.
	EventReplyReady EventKind = iota
	// EventSendFailed fires when a background send was rolled back.
	EventSendFailed
	// EventDeleteFailed fires when the service refused a deletion that
	// was already applied locally.
	EventDeleteFailed
)

// String returns the name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventReplyReady:
		return "reply_ready"
	case EventSendFailed:
		return "send_failed"
	case EventDeleteFailed:
		return "delete_failed"
	default:
		return "unknown"
	}
}

// Event reports the outcome of work the caller did not wait for.
type Event struct {
	Kind           EventKind
	ConversationID model.ID
	MessageID      model.ID
	// Content is the user message of a failed send, so it can be offered
	// for editing and resending.
	Content string
	Err     error
}
