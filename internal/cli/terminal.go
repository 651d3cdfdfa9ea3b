// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - TTY detection, color control and secret input.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the width of stdout, or 80 when unknown.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isTerminalReader reports whether r is a terminal file.
func isTerminalReader(r io.Reader) (int, bool) {
	f, ok := r.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// isTerminalWriter reports whether w is a terminal file.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled returns true if colored output should be used. NO_COLOR
// wins over FORCE_COLOR, which wins over TTY detection.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorsEnabled = false
		case os.Getenv("FORCE_COLOR") != "":
			colorsEnabled = true
		default:
			colorsEnabled = IsStdoutTTY()
		}
	})
	return colorsEnabled
}

// GetColorProfile returns Ascii when colors are off, otherwise whatever
// termenv detects.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// glamourStyle picks the markdown style for terminal output.
func glamourStyle() string {
	if !ColorsEnabled() {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// =============================================================================
// INTERACTIVE INPUT
// =============================================================================

// ErrNoInput is returned when a prompt hits end of input.
var ErrNoInput = errors.New("no input")

// readSecret prompts for a secret. On a terminal the input is not echoed;
// otherwise one line is read from env.In.
// SECURITY: secrets are never taken from argv, where they end up in shell
// history and process listings.
func readSecret(env *Env, prompt string) (string, error) {
	if env.ReadSecret != nil {
		return env.ReadSecret(prompt)
	}
	fmt.Fprint(env.Err, prompt)
	if fd, ok := isTerminalReader(env.In); ok {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(env.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(env)
}

// readLine reads one trimmed line from env.In.
func readLine(env *Env) (string, error) {
	if env.reader == nil {
		env.reader = bufio.NewReader(env.In)
	}
	line, err := env.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question. Anything but y or yes, including end of
// input, is a no.
func confirm(env *Env, question string) bool {
	fmt.Fprintf(env.Err, "%s [y/N]: ", question)
	answer, err := readLine(env)
	if err != nil {
		fmt.Fprintln(env.Err)
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}
