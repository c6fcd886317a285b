// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view.
//
// The view never mutates conversation state itself. It reads the store,
// re-renders whenever the store reports a change and performs every action
// through the sync engine. Replies being played back are shown with their
// revealed prefix and a cursor; finished replies are rendered as markdown.
//
// # Layout
//
//	+----------------+--------------------------------------+
//	| Conversations  | messages (viewport)                  |
//	|  > Hello th... |                                      |
//	|    Plans for.. |                                      |
//	|                +--------------------------------------+
//	|                | > input                              |
//	+----------------+--------------------------------------+
//	| status bar                                            |
//	+-------------------------------------------------------+
package chat
