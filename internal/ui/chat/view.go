// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// View renders the chat view.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.render.sidebar(m.convs, m.selected, m.active, m.focus == focusSidebar, sidebarWidth-1, m.viewport.Height+2),
		" ",
		lipgloss.JoinVertical(lipgloss.Left,
			m.renderMain(),
			m.theme.InputContainer.Width(m.mainWidth()).Render(m.input.View()),
		),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatus())
}

func (m Model) renderMain() string {
	if m.showHelp {
		return lipgloss.NewStyle().Width(m.viewport.Width).Height(m.viewport.Height).Render(m.renderHelp())
	}
	if m.active.IsZero() {
		hint := "Start typing to create a new conversation, or press Tab to pick one."
		if m.loading {
			hint = m.spinner.View() + " Loading conversations..."
		}
		return m.theme.Empty.Width(m.viewport.Width).Height(m.viewport.Height).Render(hint)
	}
	return m.viewport.View()
}

func (m Model) renderHeader() string {
	left := m.theme.HeaderBrand.Render("rigchat")
	if !m.active.IsZero() {
		for _, c := range m.convs {
			if c.ID == m.active {
				left += "  " + c.Title
				break
			}
		}
	}

	right := ""
	if m.session != nil {
		if u, ok := m.session.User(); ok {
			right = m.theme.HeaderUser.Render(u.Email)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderStatus() string {
	var left string
	switch {
	case m.lastErr != nil:
		left = styles.RenderError(m.status)
	case m.sending > 0:
		left = m.spinner.View() + " " + m.status
	default:
		left = m.status
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	right := strings.Join(hints, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		// Too narrow for hints.
		return m.theme.StatusBar.Width(m.width).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Keys"))
	b.WriteString("\n")
	for _, group := range m.keys.FullHelp() {
		for _, k := range group {
			h := k.Help()
			b.WriteString("  ")
			b.WriteString(m.theme.ShortcutKey.Width(12).Render(h.Key))
			b.WriteString(m.theme.ShortcutDesc.Render(h.Desc))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
