// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleConversation() *model.Conversation {
	conv := &model.Conversation{
		ID:        model.CanonicalID(7),
		Title:     "Hello: world",
		CreatedAt: fixedNow.Add(-time.Hour),
		Messages: []model.Message{
			{ID: model.CanonicalID(1), Role: model.RoleUser, Content: "Hello", CreatedAt: fixedNow.Add(-time.Hour)},
			{ID: model.CanonicalID(2), Role: model.RoleAssistant, Content: "Hi **there**", CreatedAt: fixedNow.Add(-time.Hour),
				Playback: &model.Playback{Playing: true, Revealed: "Hi"}},
			{ID: model.NewProvisionalID(), Role: model.RoleUser, Content: "pending"},
		},
	}
	return conv
}

func testOptions(dir string) *Options {
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func TestMarkdownExporter(t *testing.T) {
	data, err := NewMarkdownExporter(testOptions("")).Export(sampleConversation())
	require.NoError(t, err)
	md := string(data)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: \"Hello: world\"\n"))
	assert.Contains(t, md, "conversation_id: 7\n")
	assert.Contains(t, md, "messages: 2\n")
	assert.Contains(t, md, "# Hello: world\n")
	assert.Contains(t, md, "### You <sub>")
	assert.Contains(t, md, "Hi **there**")
	assert.NotContains(t, md, "pending")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	opts := testOptions("")
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	data, err := NewMarkdownExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "# Hello: world\n"))
	assert.Contains(t, md, "### Assistant\n")
	assert.NotContains(t, md, "<sub>")
}

func TestMarkdownExporter_Empty(t *testing.T) {
	data, err := NewMarkdownExporter(testOptions("")).Export(&model.Conversation{ID: model.CanonicalID(1)})
	require.NoError(t, err)
	assert.Contains(t, string(data), "# New conversation")
	assert.Contains(t, string(data), "*No messages.*")

	_, err = NewMarkdownExporter(nil).Export(nil)
	assert.ErrorIs(t, err, ErrNilConversation)
}

func TestJSONExporter(t *testing.T) {
	data, err := NewJSONExporter().Export(sampleConversation())
	require.NoError(t, err)

	var got model.Conversation
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, model.CanonicalID(7), got.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Hi **there**", got.Messages[1].Content)
	assert.Nil(t, got.Messages[1].Playback)

	_, err = NewJSONExporter().Export(nil)
	assert.ErrorIs(t, err, ErrNilConversation)
}

func TestForFormat(t *testing.T) {
	for _, f := range []string{"markdown", "MD", "json"} {
		e, err := ForFormat(f, nil)
		require.NoError(t, err, f)
		assert.NotNil(t, e)
	}
	_, err := ForFormat("html", nil)
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	conv := sampleConversation()

	path, err := ToFile(conv, NewJSONExporter(), testOptions(dir))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "conversation_Hello-_world_20250314_092653.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"simple", "simple"},
		{"a/b\\c:d", "a-b-c-d"},
		{"two words", "two_words"},
		{"   ", "conversation"},
		{"bell\x07", "bell-"},
		{strings.Repeat("x", 80), strings.Repeat("x", 47)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
