// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual building blocks of the routerchat
// TUI. Components are stateless renderers: they take data and a width and
// return a string.
//
// # Key Types
//
//   - MessageBubble: A chat message with role label and optional timestamp
//   - Markdown: Width-aware glamour renderer for assistant replies
//   - Sidebar: The session list
//   - StatusBar: Bottom bar with model, key, loading state and shortcuts
//   - ErrorBanner: Dismissible error line
package components
