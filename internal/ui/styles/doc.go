// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the rigchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - assistant messages and selections
  - Cyan - brand color, user highlights and the active conversation
  - Emerald - success states
  - Amber - pending messages and warnings
  - Rose - errors

# Theme (theme.go)

NewTheme builds every style from the configured theme name ("dark",
"light" or "auto"). NO_COLOR, or a terminal without color support,
selects the plain ASCII profile.

	theme := styles.NewTheme(cfg.UI.Theme)
	fmt.Println(theme.UserMessage.Render("hello"))
*/
package styles
