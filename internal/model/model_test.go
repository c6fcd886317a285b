// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ID TESTS
// =============================================================================

func TestID_Kinds(t *testing.T) {
	var zero ID
	assert.True(t, zero.IsZero())
	assert.False(t, zero.IsCanonical())
	assert.False(t, zero.IsProvisional())

	c := CanonicalID(42)
	assert.True(t, c.IsCanonical())
	n, ok := c.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, "42", c.String())

	p := NewProvisionalID()
	assert.True(t, p.IsProvisional())
	assert.True(t, strings.HasPrefix(p.String(), ProvisionalPrefix))
	_, ok = p.Int64()
	assert.False(t, ok)
}

func TestID_ProvisionalNeverEqualsCanonical(t *testing.T) {
	a, b := NewProvisionalID(), NewProvisionalID()
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, CanonicalID(1))
	assert.Equal(t, CanonicalID(7), CanonicalID(7))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("17")
	require.NoError(t, err)
	assert.Equal(t, CanonicalID(17), id)

	p := NewProvisionalID()
	id, err = ParseID(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, id)

	id, err = ParseID("")
	require.NoError(t, err)
	assert.True(t, id.IsZero())

	_, err = ParseID("abc")
	assert.Error(t, err)
}

func TestID_JSON(t *testing.T) {
	msg := Message{ID: CanonicalID(3), ConversationID: CanonicalID(1), Role: RoleUser, Content: "hi"}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":3`)
	assert.Contains(t, string(data), `"conversation_id":1`)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, msg.ConversationID, decoded.ConversationID)

	var null ID
	require.NoError(t, json.Unmarshal([]byte("null"), &null))
	assert.True(t, null.IsZero())

	p := NewProvisionalID()
	data, err = json.Marshal(p)
	require.NoError(t, err)
	var back ID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_DisplayContent(t *testing.T) {
	m := Message{Role: RoleAssistant, Content: "Hi there"}
	assert.Equal(t, "Hi there", m.DisplayContent())
	assert.False(t, m.IsPlaying())

	m.Playback = &Playback{Playing: true, Revealed: "Hi"}
	assert.Equal(t, "Hi", m.DisplayContent())
	assert.True(t, m.IsPlaying())
}

func TestMessage_CloneIsolatesPlayback(t *testing.T) {
	m := Message{Playback: &Playback{Playing: true, Revealed: "a"}}
	c := m.Clone()
	c.Playback.Revealed = "changed"
	assert.Equal(t, "a", m.Playback.Revealed)
}

func TestRole_DisplayName(t *testing.T) {
	assert.Equal(t, "You", RoleUser.DisplayName())
	assert.Equal(t, "Assistant", RoleAssistant.DisplayName())
	assert.Equal(t, "Unknown", Role("tool").DisplayName())
	assert.False(t, Role("system").Valid())
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_Helpers(t *testing.T) {
	tmp := NewProvisionalID()
	c := Conversation{
		ID: CanonicalID(1),
		Messages: []Message{
			{ID: CanonicalID(1), Role: RoleUser, Content: "a"},
			{ID: tmp, Role: RoleUser, Content: "b"},
		},
	}
	assert.Equal(t, 2, c.MessageCount())
	assert.Equal(t, 1, c.IndexOf(tmp))
	assert.Equal(t, -1, c.IndexOf(CanonicalID(99)))
	assert.True(t, c.HasProvisional())

	last, ok := c.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "b", last.Content)

	_, playing := c.Playing()
	assert.False(t, playing)
}

func TestConversation_CloneIsDeep(t *testing.T) {
	c := Conversation{Messages: []Message{{Content: "a"}}}
	d := c.Clone()
	d.Messages[0].Content = "b"
	assert.Equal(t, "a", c.Messages[0].Content)
}

// =============================================================================
// TITLE TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short", "Hello", "Hello"},
		{"trimmed", "  Hello  ", "Hello"},
		{"newlines flattened", "Hello\n\nworld", "Hello world"},
		{"exactly thirty", strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{"long", strings.Repeat("a", 40), strings.Repeat("a", 30) + "..."},
		{"empty", "   ", DefaultTitle},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveTitle(tc.content, DefaultTitleLength))
		})
	}
}

func TestDeriveTitle_NormalizesComposedCharacters(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	decomposed := "Cafe\u0301"
	assert.Equal(t, "Caf\u00e9", DeriveTitle(decomposed, 10))
}

// =============================================================================
// USER TESTS
// =============================================================================

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{"Short1!", ErrPasswordTooShort},
		{"NoDigits!!", ErrPasswordNoDigit},
		{"nouppercase1!", ErrPasswordNoUpper},
		{"NoSpecial123", ErrPasswordNoSpecial},
		{"Valid123!", nil},
	}
	for _, tc := range tests {
		t.Run(tc.password, func(t *testing.T) {
			assert.ErrorIs(t, ValidatePassword(tc.password), tc.want)
			if tc.want == nil {
				assert.NoError(t, ValidatePassword(tc.password))
			}
		})
	}
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
	assert.NoError(t, ValidateEmail("ana@example.com"))
	assert.ErrorIs(t, ValidateEmail("ana"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail("@example.com"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail("ana@localhost"), ErrEmailInvalid)
}
