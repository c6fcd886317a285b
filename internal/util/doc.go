// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rigchat.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: Display-width truncation for terminal columns
//   - Tokens: Whitespace-delimited token spans of a text
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Fit a conversation title into a sidebar column
//	label := util.TruncateWidth(title, 24)
//
//	// Write the config atomically
//	err := util.AtomicWriteFile(path, data, 0600)
package util
