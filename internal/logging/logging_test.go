// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "routerchat.log")
	logger, closer, err := New(Options{Level: "warn", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	Component(logger, "storage").Info("hidden")
	Component(logger, "storage").Warn("slot discarded", "slot", "openrouter_chat_sessions")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	for _, want := range []string{"slot discarded", "component=storage", "app=routerchat"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestNew_VerboseAndDisabled(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, slog.LevelDebug).Debug("canary")
	if !strings.Contains(buf.String(), "canary") {
		t.Error("debug record missing")
	}

	logger, closer, err := New(Options{})
	if err != nil || logger == nil {
		t.Fatalf("New() with no file = %v, %v", logger, err)
	}
	closer.Close()
	logger.Error("dropped")
}
