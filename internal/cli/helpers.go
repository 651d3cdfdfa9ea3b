// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Lookup and formatting helpers shared by the commands.

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/components"
)

// minPrefix is the shortest id prefix accepted as a reference.
const minPrefix = 4

// resolveKey finds a key by id, exact name, or unique id prefix.
func resolveKey(keys []model.KeyEntry, ref string) (model.KeyEntry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.KeyEntry{}, model.InvalidArgumentf("key reference is empty")
	}
	for _, k := range keys {
		if k.ID == ref {
			return k, nil
		}
	}
	var byName []model.KeyEntry
	for _, k := range keys {
		if k.Name == ref {
			byName = append(byName, k)
		}
	}
	if len(byName) == 1 {
		return byName[0], nil
	}
	if len(byName) > 1 {
		return model.KeyEntry{}, model.InvalidArgumentf("%d keys are named %q, use the id", len(byName), ref)
	}

	var match []model.KeyEntry
	if len(ref) >= minPrefix {
		for _, k := range keys {
			if strings.HasPrefix(strings.ToLower(k.ID), strings.ToLower(ref)) {
				match = append(match, k)
			}
		}
	}
	switch len(match) {
	case 0:
		return model.KeyEntry{}, model.NotFoundf("no API key matches %q", ref)
	case 1:
		return match[0], nil
	default:
		return model.KeyEntry{}, model.InvalidArgumentf("%q matches %d keys, use more of the id", ref, len(match))
	}
}

// resolveSession finds a session by id or unique id prefix.
func resolveSession(sessions []model.Session, ref string) (model.Session, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Session{}, model.InvalidArgumentf("chat reference is empty")
	}
	var match []model.Session
	for _, s := range sessions {
		if s.ID == ref {
			return s, nil
		}
		if len(ref) >= minPrefix && strings.HasPrefix(strings.ToLower(s.ID), strings.ToLower(ref)) {
			match = append(match, s)
		}
	}
	switch len(match) {
	case 0:
		return model.Session{}, model.NotFoundf("no chat matches %q", ref)
	case 1:
		return match[0], nil
	default:
		return model.Session{}, model.InvalidArgumentf("%q matches %d chats, use more of the id", ref, len(match))
	}
}

// shortID shows enough of an id to be typed back as a prefix.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// formatAge formats how long ago t was.
func formatAge(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// pluralize returns "1 message" or "3 messages".
func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// markdownPrinter renders replies for the terminal. Output that is not a
// terminal gets the raw text.
type markdownPrinter struct {
	md    *components.Markdown
	width int
}

func newMarkdownPrinter(env *Env) markdownPrinter {
	if !isTerminalWriter(env.Out) {
		return markdownPrinter{}
	}
	return markdownPrinter{
		md:    components.NewMarkdown(glamourStyle()),
		width: min(GetTerminalWidth(), 100),
	}
}

func (p markdownPrinter) render(content string) string {
	if p.md == nil {
		return content
	}
	return p.md.Render(content, p.width)
}
