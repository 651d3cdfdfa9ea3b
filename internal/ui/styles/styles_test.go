// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"

	"github.com/jeranaias/routerchat/internal/model"
)

func TestGlamourStyle(t *testing.T) {
	tests := []struct {
		dark    bool
		profile termenv.Profile
		want    string
	}{
		{true, termenv.TrueColor, "dark"},
		{false, termenv.ANSI256, "light"},
		{true, termenv.Ascii, "notty"},
	}
	for _, tc := range tests {
		if got := NewThemeFor(tc.dark, tc.profile).GlamourStyle(); got != tc.want {
			t.Errorf("GlamourStyle(dark=%v, profile=%v) = %q, want %q", tc.dark, tc.profile, got, tc.want)
		}
	}
}

func TestGetLayoutMode(t *testing.T) {
	theme := NewThemeFor(true, termenv.Ascii)
	for width, want := range map[int]LayoutMode{40: LayoutNarrow, 80: LayoutMedium, 140: LayoutWide} {
		theme.SetSize(width, 30)
		if got := theme.GetLayoutMode(); got != want {
			t.Errorf("width %d: layout = %v, want %v", width, got, want)
		}
	}
}

func TestRenderKeyStatus(t *testing.T) {
	tests := map[model.KeyStatus]string{
		model.KeyValid:     "[OK] Valid",
		model.KeyInvalid:   "[X] Invalid",
		model.KeyChecking:  "[!] Checking...",
		model.KeyUnchecked: "[ ] Unchecked",
	}
	for status, want := range tests {
		if got := RenderKeyStatus(status); !strings.Contains(got, want) {
			t.Errorf("RenderKeyStatus(%s) = %q, want it to contain %q", status, got, want)
		}
	}
}

func TestRenderStatusMessages(t *testing.T) {
	for _, tc := range []struct {
		got, indicator string
	}{
		{RenderSuccess("saved"), StatusIndicators.Success},
		{RenderError("failed"), StatusIndicators.Error},
		{RenderWarning("careful"), StatusIndicators.Warning},
		{RenderInfo("note"), StatusIndicators.Info},
	} {
		if !strings.Contains(tc.got, tc.indicator) {
			t.Errorf("%q missing indicator %q", tc.got, tc.indicator)
		}
	}
}

func TestSpinnerConfig(t *testing.T) {
	if d := LineSpinner.Duration(); d != 100*time.Millisecond {
		t.Errorf("LineSpinner.Duration() = %v", d)
	}
	if d := (SpinnerConfig{}).Duration(); d != time.Second {
		t.Errorf("zero FPS duration = %v", d)
	}
	s := DotsSpinner.Bubbles()
	if len(s.Frames) != len(DotsSpinner.Frames) || s.FPS != DotsSpinner.Duration() {
		t.Errorf("Bubbles() = %+v", s)
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		width, done, total int
		want               string
	}{
		{4, 0, 4, "[----]"},
		{4, 2, 4, "[##--]"},
		{4, 9, 4, "[####]"},
		{4, 1, 0, "[----]"},
		{0, 1, 1, ""},
	}
	for _, tc := range tests {
		if got := RenderProgressBar(tc.width, tc.done, tc.total); got != tc.want {
			t.Errorf("RenderProgressBar(%d,%d,%d) = %q, want %q", tc.width, tc.done, tc.total, got, tc.want)
		}
	}
}
