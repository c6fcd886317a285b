// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// Role and outcome accents.
var (
	// Cyan marks the brand, the user role and the active conversation.
	Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	// Purple marks the assistant role and the sidebar selection.
	Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	Amber   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	Rose    = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
)

// Text and panes.
var (
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

	SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay    = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
)

// Message blocks in the conversation pane.
var (
	UserMessageFg     = lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"}
	UserMessageBorder = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}

	AssistantMessageFg     = lipgloss.AdaptiveColor{Light: "#5B4B8A", Dark: "#E9E4F5"}
	AssistantMessageBorder = lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"}
)

// Line-mode status markers. ASCII so they survive any terminal.
const (
	markSuccess = "[OK]"
	markError   = "[X]"
	markWarning = "[!]"
)

func renderMarked(c lipgloss.TerminalColor, mark, message string) string {
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(mark + " " + message)
}

// RenderSuccess renders a confirmation line for the REPL.
func RenderSuccess(message string) string { return renderMarked(Emerald, markSuccess, message) }

// RenderError renders an error line for the REPL.
func RenderError(message string) string { return renderMarked(Rose, markError, message) }

// RenderWarning renders a warning line for the REPL.
func RenderWarning(message string) string { return renderMarked(Amber, markWarning, message) }
