// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection and markdown output for line-mode
// commands.
//
// Piped output gets plain text; a terminal gets glamour-rendered markdown
// wrapped to its width.

package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// isTerminal reports whether w is a terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or DefaultTerminalWidth.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// MARKDOWN OUTPUT
// =============================================================================

// markdownWriter renders replies for w. It passes text through unchanged
// when w is not a terminal or rendering is disabled.
type markdownWriter struct {
	w  io.Writer
	md *glamour.TermRenderer
}

func newMarkdownWriter(w io.Writer, theme *styles.Theme, enabled bool) *markdownWriter {
	mw := &markdownWriter{w: w}
	if !enabled || !isTerminal(w) {
		return mw
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithWordWrap(terminalWidth(w)-4),
	)
	if err == nil {
		mw.md = md
	}
	return mw
}

// Render returns content as it will be printed.
func (mw *markdownWriter) Render(content string) string {
	if mw.md == nil {
		return content
	}
	out, err := mw.md.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// Print writes content followed by a newline.
func (mw *markdownWriter) Print(content string) {
	printf(mw.w, "%s\n", mw.Render(content))
}
