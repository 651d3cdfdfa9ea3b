// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slot.json")
	if err := AtomicWriteFile(path, []byte(`[]`), 0600); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("content = %q", data)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if info.Mode().Perm() != 0600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	}
}

func TestAtomicWriteFile_CreatesParentAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "slot")
	if err := AtomicWriteFile(path, []byte("one"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteFile(path, []byte("two"), 0600); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "two" {
		t.Errorf("content = %q, want two", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tc := range tests {
		if got := TruncateRunes(tc.in, tc.max); got != tc.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"a long title", 7, "a lo..."},
		{"日本語テキスト", 7, "日本..."},
		{"anything", 0, ""},
	}
	for _, tc := range tests {
		got := TruncateWidth(tc.in, tc.max)
		if got != tc.want {
			t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
		if StringWidth(got) > tc.max {
			t.Errorf("TruncateWidth(%q, %d) is %d columns wide", tc.in, tc.max, StringWidth(got))
		}
	}
}

func TestPadWidth(t *testing.T) {
	if got := PadWidth("ab", 4); got != "ab  " {
		t.Errorf("PadWidth() = %q", got)
	}
	if got := StringWidth(PadWidth("日本語", 5)); got != 5 {
		t.Errorf("PadWidth wide string width = %d, want 5", got)
	}
}

func TestCleanText(t *testing.T) {
	// "e" + combining acute accent composes to a single rune.
	if got := CleanText("  Cafe\u0301  "); got != "Caf\u00e9" {
		t.Errorf("CleanText() = %q", got)
	}
}
