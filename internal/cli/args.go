// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Argument parsing shared by every routerchat command.

package cli

import (
	"fmt"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits the arguments of one command into a subcommand, flags
// and positional arguments. It handles:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: registered names never consume the next argument
//   - "--": everything after it is positional
type ArgParser struct {
	subcommand string            // first positional arg (e.g. "list", "add")
	flags      map[string]string // --key=value
	boolFlags  map[string]bool   // --yes
	positional []string          // all positional args including the subcommand
}

// NewArgParser parses raw. Names listed in boolNames are boolean flags.
//
// Example:
//
//	args := NewArgParser([]string{"export", "abc", "--format", "json", "--yes"}, "yes")
//	args.Subcommand()     // "export"
//	args.Flag("format")   // "json"
//	args.BoolFlag("yes")  // true
//	args.Positional(1)    // "abc"
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	isBool := make(map[string]bool, len(boolNames))
	for _, n := range boolNames {
		isBool[n] = true
	}
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if key, value, ok := strings.Cut(name, "="); ok {
			if isBool[key] {
				b, err := ParseBoolString(value)
				p.boolFlags[key] = err != nil || b
			} else {
				p.flags[key] = value
			}
			continue
		}
		// "-" is a value (stdin/stdout), not a flag
		if !isBool[name] && i+1 < len(raw) && (!strings.HasPrefix(raw[i+1], "-") || raw[i+1] == "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}

	if len(p.positional) > 0 {
		p.subcommand = p.positional[0]
	}
	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Flag returns the value of the first of names that was given.
//
//	args.Flag("model", "m") // --model X or -m X
func (p *ArgParser) Flag(names ...string) string {
	for _, name := range names {
		if val, ok := p.flags[strings.TrimLeft(name, "-")]; ok {
			return val
		}
	}
	return ""
}

// BoolFlag reports whether any of names was set.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, name := range names {
		if p.boolFlags[strings.TrimLeft(name, "-")] {
			return true
		}
	}
	return false
}

// RequireValue fails when a value flag was given without a value, as in a
// trailing "--model".
func (p *ArgParser) RequireValue(names ...string) error {
	for _, name := range names {
		if _, ok := p.boolFlags[name]; ok {
			return &UsageError{Reason: fmt.Sprintf("flag --%s needs a value", name)}
		}
	}
	return nil
}

// Positional returns the positional argument at index, or "". Index 0 is
// the subcommand.
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns all positional arguments starting at index.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return []string{}
	}
	return p.positional[index:]
}

// ParseBoolString parses true/false, yes/no, y/n, 1/0 and on/off.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}
