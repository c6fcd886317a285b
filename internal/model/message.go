// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant is a reply produced by the chat service.
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-friendly name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// PLAYBACK STATE
// =============================================================================

// Playback is the transient reveal state of an assistant reply.
type Playback struct {
	Playing  bool   `json:"playing"`
	Revealed string `json:"revealed"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	ID             ID        `json:"id"`
	ConversationID ID        `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`

	// Playback is non-nil only while the reply is being revealed.
	Playback *Playback `json:"-"`
}

// IsProvisional reports whether the message is awaiting reconciliation.
func (m Message) IsProvisional() bool {
	return m.ID.IsProvisional()
}

// IsPlaying reports whether the message has an active playback.
func (m Message) IsPlaying() bool {
	return m.Playback != nil && m.Playback.Playing
}

// DisplayContent returns the text a display layer should render.
func (m Message) DisplayContent() string {
	if m.Playback != nil {
		return m.Playback.Revealed
	}
	return m.Content
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	if m.Playback != nil {
		pb := *m.Playback
		m.Playback = &pb
	}
	return m
}

// =============================================================================
// REPLY
// =============================================================================

// Reply is the canonical pair returned by the chat service for one send.
type Reply struct {
	User      Message `json:"user_message"`
	Assistant Message `json:"assistant_message"`
}
