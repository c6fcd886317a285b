// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigchat/internal/util"
)

// DefaultTitleLength is the number of characters kept by DeriveTitle.
const DefaultTitleLength = 30

// DefaultTitle names a conversation created without a first message.
const DefaultTitle = "New conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation represents a chat session.
type Conversation struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageCount returns the number of messages in the conversation.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// IndexOf returns the position of the message with the given ID, or -1.
func (c Conversation) IndexOf(id ID) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// HasProvisional reports whether any message still awaits reconciliation.
func (c Conversation) HasProvisional() bool {
	for i := range c.Messages {
		if c.Messages[i].IsProvisional() {
			return true
		}
	}
	return false
}

// Playing returns the message currently being revealed, if any.
func (c Conversation) Playing() (Message, bool) {
	for i := range c.Messages {
		if c.Messages[i].Playback != nil {
			return c.Messages[i], true
		}
	}
	return Message{}, false
}

// LastMessage returns the most recent message.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	if c.Messages == nil {
		return c
	}
	msgs := make([]Message, len(c.Messages))
	for i := range c.Messages {
		msgs[i] = c.Messages[i].Clone()
	}
	c.Messages = msgs
	return c
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle builds a conversation title from the first user message.
// The content is NFC-normalized, flattened to one line and cut to maxRunes
// characters; "..." is appended when anything was cut.
func DeriveTitle(content string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultTitleLength
	}
	s := norm.NFC.String(strings.TrimSpace(content))
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return DefaultTitle
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimRight(string(runes[:maxRunes]), " ") + util.Ellipsis
}
