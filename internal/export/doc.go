// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat sessions out as Markdown or JSON.
//
// # Key Types
//
//   - Exporter: Converts a session to bytes in one format
//   - Format: Export format name ("md" or "json")
//   - Options: Export configuration options
//
// # Usage
//
//	exp, err := export.ForFormat(export.FormatMarkdown, nil)
//	data, err := exp.Export(session)
//
// Export straight to a file:
//
//	path, err := export.ToFile(session, exp, "chat.md")
package export
