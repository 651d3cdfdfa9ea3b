// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// SHARED HELPER FUNCTIONS
// =============================================================================

// wrap breaks text at spaces so no line exceeds width display cells. Words
// wider than width are hard-split. Existing newlines are kept.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		lineWidth := 0
		for j, word := range strings.Fields(line) {
			w := runewidth.StringWidth(word)
			if j > 0 {
				if lineWidth+1+w > width {
					out.WriteByte('\n')
					lineWidth = 0
				} else {
					out.WriteByte(' ')
					lineWidth++
				}
			}
			for w > width {
				head := runewidth.Truncate(word, width, "")
				if head == "" {
					_, size := utf8.DecodeRuneInString(word)
					head = word[:size]
				}
				out.WriteString(head)
				out.WriteByte('\n')
				word = word[len(head):]
				w = runewidth.StringWidth(word)
				lineWidth = 0
			}
			out.WriteString(word)
			lineWidth += w
		}
	}
	return out.String()
}
