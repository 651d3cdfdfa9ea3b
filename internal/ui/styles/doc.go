// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the routerchat TUI.

All colors use Lip Gloss AdaptiveColor so they follow the terminal's light or
dark background.

# Color System (colors.go)

  - Purple - Primary accent, assistant messages, selections
  - Cyan - Brand color, user highlights, key hints
  - Emerald - Valid keys and success states
  - Amber - Keys being checked, warnings
  - Rose - Invalid keys and errors

# Theme (theme.go)

Theme groups the Lip Gloss styles used by the chat view: header, sidebar,
message bubbles, input, status bar, overlays and the error banner. It also
picks the glamour style that matches the terminal background.

# Accessibility

Every status color is paired with an ASCII indicator ([OK], [X], [!], [i],
[ ], [*]) so state is readable without color.
*/
package styles
