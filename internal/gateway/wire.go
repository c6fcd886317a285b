// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

// timestamp accepts RFC 3339 times as well as the zone-less ISO form the
// service emits for naive datetimes, which are read as UTC.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

type messageDTO struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      timestamp `json:"created_at"`
}

func (m messageDTO) toModel() model.Message {
	return model.Message{
		ID:             model.CanonicalID(m.ID),
		ConversationID: model.CanonicalID(m.ConversationID),
		Role:           model.Role(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt.Time,
	}
}

type conversationDTO struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Title     string       `json:"title"`
	CreatedAt timestamp    `json:"created_at"`
	Messages  []messageDTO `json:"messages"`
}

func (c conversationDTO) toModel() model.Conversation {
	conv := model.Conversation{
		ID:        model.CanonicalID(c.ID),
		Title:     c.Title,
		CreatedAt: c.CreatedAt.Time,
	}
	if c.Messages != nil {
		conv.Messages = make([]model.Message, len(c.Messages))
		for i, m := range c.Messages {
			conv.Messages[i] = m.toModel()
		}
	}
	return conv
}

type chatRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
}

type chatResponse struct {
	UserMessage      messageDTO `json:"user_message"`
	AssistantMessage messageDTO `json:"assistant_message"`
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt timestamp `json:"created_at"`
}

func (u userDTO) toModel() model.User {
	return model.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt.Time}
}

type loginResponse struct {
	Message string  `json:"message"`
	User    userDTO `json:"user"`
}
