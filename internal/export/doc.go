// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to Markdown or JSON files.
//
// Only canonical messages are exported; provisional messages and running
// playbacks are local display state.
//
//	path, err := export.ToFile(conv, export.NewMarkdownExporter(nil), export.DefaultOptions())
package export
