// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// playbackCursor trails the revealed text of a reply being played back.
const playbackCursor = "▍"

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

type cachedRender struct {
	content string
	width   int
	out     string
}

// renderer turns messages into styled blocks. Finished assistant replies
// go through glamour; everything else is wrapped plain text.
type renderer struct {
	theme    *styles.Theme
	markdown bool
	wrap     bool

	width int
	md    *glamour.TermRenderer
	cache map[model.ID]cachedRender
}

func newRenderer(theme *styles.Theme, markdown, wrap bool) *renderer {
	return &renderer{
		theme:    theme,
		markdown: markdown,
		wrap:     wrap,
		cache:    make(map[model.ID]cachedRender),
	}
}

// setWidth rebuilds the markdown renderer for a new content width.
func (r *renderer) setWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.md = nil
	if !r.markdown || width <= 0 {
		return
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.theme.GlamourStyle()),
		glamour.WithWordWrap(r.bodyWidth()),
	)
	if err == nil {
		r.md = md
	}
}

// bodyWidth is the text width inside a bubble.
func (r *renderer) bodyWidth() int {
	// border (2) + padding (2) + margin (4)
	w := r.width - 8
	if w < 10 {
		w = 10
	}
	return w
}

// forget drops cached renders of messages no longer displayed.
func (r *renderer) forget(keep []model.Message) {
	live := make(map[model.ID]bool, len(keep))
	for _, m := range keep {
		live[m.ID] = true
	}
	for id := range r.cache {
		if !live[id] {
			delete(r.cache, id)
		}
	}
}

// messages renders a whole conversation, oldest first.
func (r *renderer) messages(msgs []model.Message, spinnerView string) string {
	if len(msgs) == 0 {
		return r.theme.Empty.Render("No messages yet. Type below to start.")
	}
	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		blocks = append(blocks, r.message(m, spinnerView))
	}
	r.forget(msgs)
	return strings.Join(blocks, "\n")
}

func (r *renderer) message(m model.Message, spinnerView string) string {
	label := r.theme.RoleLabel.Render(m.Role.DisplayName())
	if !m.CreatedAt.IsZero() && !m.IsProvisional() {
		label += r.theme.RoleLabel.Render(" · " + m.CreatedAt.Local().Format("15:04"))
	}

	var body string
	switch {
	case m.Role == model.RoleAssistant && m.IsProvisional():
		body = spinnerView + " " + r.theme.ThinkingText.Render("thinking...")
	case m.IsPlaying():
		body = r.plain(m.DisplayContent()) + r.theme.Cursor.Render(playbackCursor)
	case m.Role == model.RoleAssistant:
		body = r.rendered(m)
	default:
		body = r.plain(m.Content)
	}

	style := r.theme.AssistantMessage
	if m.Role == model.RoleUser {
		style = r.theme.UserMessage
		if m.IsProvisional() {
			style = r.theme.PendingMessage
		}
	}
	if r.wrap {
		style = style.MaxWidth(r.width)
	}

	block := lipgloss.JoinVertical(lipgloss.Left, label, style.Render(body))
	if m.Role == model.RoleUser {
		return lipgloss.PlaceHorizontal(r.width, lipgloss.Right, block)
	}
	return block
}

// plain wraps text to the bubble width.
func (r *renderer) plain(s string) string {
	if !r.wrap {
		return s
	}
	return lipgloss.NewStyle().Width(r.bodyWidth()).Render(s)
}

// rendered returns markdown output for a finished reply, cached per width.
func (r *renderer) rendered(m model.Message) string {
	if r.md == nil {
		return r.plain(m.Content)
	}
	if c, ok := r.cache[m.ID]; ok && c.content == m.Content && c.width == r.width {
		return c.out
	}
	out, err := r.md.Render(m.Content)
	if err != nil {
		return r.plain(m.Content)
	}
	out = strings.Trim(out, "\n")
	r.cache[m.ID] = cachedRender{content: m.Content, width: r.width, out: out}
	return out
}

// =============================================================================
// SIDEBAR
// =============================================================================

// sidebar renders the conversation list. selected is the cursor row; the
// active conversation is marked.
func (r *renderer) sidebar(convs []model.Conversation, selected int, active model.ID, focused bool, width, height int) string {
	title := "Conversations"
	if focused {
		title = "> " + title
	}
	lines := []string{r.theme.SidebarTitle.Render(title)}

	if len(convs) == 0 {
		lines = append(lines, r.theme.SessionMeta.Render("none yet"))
	}

	// Keep the cursor row visible.
	rows := height - 3
	if rows < 1 {
		rows = 1
	}
	start := 0
	if selected >= rows {
		start = selected - rows + 1
	}
	for i := start; i < len(convs) && i < start+rows; i++ {
		c := convs[i]
		marker := "  "
		if c.ID == active {
			marker = "* "
		}
		text := marker + util.TruncateWidth(c.Title, width-4)
		if c.HasProvisional() {
			text += " …"
		}

		style := r.theme.SessionItem
		switch {
		case focused && i == selected:
			style = r.theme.SessionItemSelected
		case c.ID == active:
			style = r.theme.SessionItemActive
		}
		lines = append(lines, style.Width(width).Render(text))
	}
	if len(convs) > 0 {
		lines = append(lines, r.theme.SessionMeta.Render(fmt.Sprintf("%d total", len(convs))))
	}

	return r.theme.Sidebar.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}
