// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea program for the routerchat TUI.

The model renders an app.Controller snapshot and turns key presses into
controller commands. Network work (sending a message, checking keys) runs in
tea.Cmd goroutines; results come back as messages.

# Layout

	+-----------+--------------------------------------+
	| header: brand, session title, model              |
	+-----------+--------------------------------------+
	| sidebar   | conversation viewport                |
	| (chats)   |                                      |
	|           +--------------------------------------+
	|           | input                                |
	+-----------+--------------------------------------+
	| status bar: active key, spinner, shortcuts       |
	+--------------------------------------------------+

# Overlays

  - Key manager: list, add, edit, delete, import, check and activate keys.
    Shown whenever the controller reports key setup open.
  - Model picker: built-in suggestions plus a custom model id.
  - Rename and delete confirmation for chats.
  - Help.
*/
package chat
