// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/cloud"
	"github.com/jeranaias/routerchat/internal/config"
	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type fakeClient struct {
	reply     string
	err       error
	lastModel string
	lastMsgs  []cloud.ChatMessage
}

func (f *fakeClient) Complete(ctx context.Context, secret, modelID string, msgs []cloud.ChatMessage) (string, error) {
	f.lastModel = modelID
	f.lastMsgs = msgs
	return f.reply, f.err
}

func (f *fakeClient) Test(ctx context.Context, secret, modelID string) bool {
	return secret == "sk-good"
}

type fakeCatalogue struct {
	models []cloud.ModelInfo
	secret string
}

func (f *fakeCatalogue) ListModels(ctx context.Context, secret string) ([]cloud.ModelInfo, error) {
	f.secret = secret
	return f.models, nil
}

type harness struct {
	env     *Env
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	client  *fakeClient
	secrets []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		client: &fakeClient{reply: "**pong**"},
	}
	ctrl := app.New(app.Options{
		Store:  storage.NewStore(storage.NewMemoryKV(), nil),
		Client: h.client,
	})
	t.Cleanup(func() { _ = ctrl.Close() })
	h.env = &Env{
		Ctrl:   ctrl,
		Config: config.Default(),
		In:     strings.NewReader(""),
		Out:    h.out,
		Err:    h.errOut,
		ReadSecret: func(prompt string) (string, error) {
			if len(h.secrets) == 0 {
				return "", ErrNoInput
			}
			s := h.secrets[0]
			h.secrets = h.secrets[1:]
			return s, nil
		},
	}
	return h
}

// run parses argv and executes it against the harness.
func (h *harness) run(t *testing.T, argv ...string) error {
	t.Helper()
	cmd, args, err := Parse(argv)
	require.NoError(t, err)
	h.out.Reset()
	return Execute(context.Background(), h.env, cmd, args)
}

// ready adds and activates a key, which also starts the first chat.
func (h *harness) ready(t *testing.T) {
	t.Helper()
	h.secrets = append(h.secrets, "sk-good")
	require.NoError(t, h.run(t, "keys", "add", "main", "--activate"))
}

func decodeEnvelope(t *testing.T, data []byte, into any) JSONResponse {
	t.Helper()
	var resp JSONResponse
	resp.Data = into
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

// =============================================================================
// PARSING
// =============================================================================

func TestNewArgParser(t *testing.T) {
	p := NewArgParser([]string{"export", "abc", "--format", "json", "--yes", "--out", "-", "--", "--literal"}, "yes")

	assert.Equal(t, "export", p.Subcommand())
	assert.Equal(t, "json", p.Flag("format", "f"))
	assert.Equal(t, "-", p.Flag("out"))
	assert.True(t, p.BoolFlag("yes"))
	assert.Equal(t, "abc", p.Positional(1))
	assert.Equal(t, []string{"abc", "--literal"}, p.PositionalFrom(1))
	assert.Equal(t, "", p.Positional(9))
}

func TestNewArgParser_BoolFlagNeverConsumesValue(t *testing.T) {
	p := NewArgParser([]string{"add", "--activate", "work"}, "activate")
	assert.True(t, p.BoolFlag("activate"))
	assert.Equal(t, []string{"add", "work"}, p.PositionalFrom(0))

	p = NewArgParser([]string{"--activate=no"}, "activate")
	assert.False(t, p.BoolFlag("activate"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		cmd  Command
		want func(t *testing.T, a Args)
	}{
		{"no args starts the ui", nil, CmdTUI, nil},
		{"keys defaults to list", []string{"keys"}, CmdKeys, func(t *testing.T, a Args) {
			assert.Equal(t, "list", a.Subcommand)
		}},
		{"alias and positionals", []string{"session", "rename", "abcd", "New", "title"}, CmdSessions, func(t *testing.T, a Args) {
			assert.Equal(t, "rename", a.Subcommand)
			assert.Equal(t, []string{"abcd", "New", "title"}, a.Rest)
		}},
		{"ask joins the question", []string{"ask", "-m", "openai/gpt-4o", "what", "is", "go"}, CmdAsk, func(t *testing.T, a Args) {
			assert.Equal(t, "what is go", a.Query)
			assert.Equal(t, "openai/gpt-4o", a.Model)
		}},
		{"global flags anywhere", []string{"sessions", "--json", "export", "abcd", "--data-dir=/tmp/rc", "--storage", "sqlite", "--format=json"}, CmdSessions, func(t *testing.T, a Args) {
			assert.True(t, a.JSON)
			assert.Equal(t, "/tmp/rc", a.DataDir)
			assert.Equal(t, "sqlite", a.Storage)
			assert.Equal(t, "json", a.Format)
			assert.Equal(t, []string{"abcd"}, a.Rest)
		}},
		{"config defaults to show", []string{"config"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "show", a.Subcommand)
		}},
		{"version flag", []string{"--version"}, CmdVersion, nil},
		{"help", []string{"-h"}, CmdHelp, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			if tt.want != nil {
				tt.want(t, args)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, argv := range [][]string{
		{"frobnicate"},
		{"ask"},
		{"--config"},
		{"models", "set", "--model"},
	} {
		_, _, err := Parse(argv)
		var usage *UsageError
		assert.True(t, errors.As(err, &usage), "argv %v: got %v", argv, err)
		assert.Equal(t, ExitUsageError, GetExitCode(err))
	}
}

// =============================================================================
// KEYS
// =============================================================================

func TestKeys_AddActivateList(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	assert.Contains(t, h.out.String(), `Added key "main"`)
	assert.Contains(t, h.out.String(), "made it active")

	snap := h.env.Ctrl.Snapshot()
	require.Len(t, snap.Keys, 1)
	assert.Equal(t, snap.Keys[0].ID, snap.ActiveKeyID)
	assert.Len(t, snap.Sessions, 1, "activation starts the first chat")

	require.NoError(t, h.run(t, "keys"))
	out := h.out.String()
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "Unchecked")
	assert.Contains(t, out, model.MaskSecret("sk-good"))
	assert.NotContains(t, out, "sk-good\n")
}

func TestKeys_AddRequiresSecret(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, "keys", "add", "main")
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Empty(t, h.env.Ctrl.Snapshot().Keys)
}

func TestKeys_CheckActive(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	require.NoError(t, h.run(t, "keys", "check"))
	assert.Contains(t, h.out.String(), "Valid")

	h.secrets = append(h.secrets, "sk-bad")
	require.NoError(t, h.run(t, "keys", "add", "spare"))
	require.NoError(t, h.run(t, "--json", "keys", "check", "spare"))
	var view KeyView
	resp := decodeEnvelope(t, h.out.Bytes(), &view)
	assert.True(t, resp.Success)
	assert.Equal(t, "invalid", view.Status)
	assert.False(t, view.Active)
}

func TestKeys_DeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	h.env.In = strings.NewReader("n\n")
	err := h.run(t, "keys", "delete", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
	assert.Len(t, h.env.Ctrl.Snapshot().Keys, 1)

	require.NoError(t, h.run(t, "keys", "delete", "main", "--yes"))
	assert.Empty(t, h.env.Ctrl.Snapshot().Keys)
	assert.Contains(t, h.out.String(), "No active key")
}

func TestKeys_ImportFromStdin(t *testing.T) {
	h := newHarness(t)
	h.env.In = strings.NewReader(`[{"name":"a","apiKey":"sk-a"},{"name":"b","apiKey":"sk-b"}]`)

	require.NoError(t, h.run(t, "--json", "keys", "import", "-"))
	var views []KeyView
	resp := decodeEnvelope(t, h.out.Bytes(), &views)
	assert.Equal(t, "keys import", resp.Command)
	require.Len(t, views, 2)
	assert.Equal(t, "a", views[0].Name)
	assert.NotContains(t, h.out.String(), "sk-a\"")
}

func TestKeys_ImportRejectsMalformed(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"a"}`), 0600))

	err := h.run(t, "keys", "import", path)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestKeys_ResolveByPrefix(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	h.secrets = append(h.secrets, "sk-good")
	require.NoError(t, h.run(t, "keys", "add", "other"))

	other := h.env.Ctrl.Snapshot().Keys[1]
	require.NoError(t, h.run(t, "keys", "use", other.ID[:6]))
	assert.Equal(t, other.ID, h.env.Ctrl.Snapshot().ActiveKeyID)

	err := h.run(t, "keys", "use", "nope")
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestSessions_RenameAndExport(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	sess := h.env.Ctrl.Snapshot().Sessions[0]

	require.NoError(t, h.run(t, "sessions", "rename", shortID(sess.ID), "Release", "notes"))
	assert.Contains(t, h.out.String(), `"Release notes"`)

	require.NoError(t, h.run(t, "sessions"))
	assert.Contains(t, h.out.String(), "Release notes")

	path := filepath.Join(t.TempDir(), "chat.md")
	require.NoError(t, h.run(t, "sessions", "export", sess.ID, "--out", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Release notes")
}

func TestSessions_ExportJSONToStdout(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	_, err := h.env.Ctrl.SendMessage(context.Background(), "ping")
	require.NoError(t, err)
	sess := h.env.Ctrl.Snapshot().Sessions[0]

	require.NoError(t, h.run(t, "sessions", "export", sess.ID, "-f", "json", "-o", "-"))
	assert.Contains(t, h.out.String(), "ping")
	assert.Contains(t, h.out.String(), "**pong**")
}

func TestSessions_DeleteAndNotFound(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	sess := h.env.Ctrl.Snapshot().Sessions[0]

	require.NoError(t, h.run(t, "sessions", "delete", sess.ID, "-y"))
	assert.Empty(t, h.env.Ctrl.Snapshot().Sessions)

	err := h.run(t, "sessions", "show", sess.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// =============================================================================
// MODELS
// =============================================================================

func TestModels_SetByDisplayName(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "models", "set", "GPT-4o"))
	assert.Equal(t, "openai/gpt-4o", h.env.Ctrl.SelectedModel())

	require.NoError(t, h.run(t, "models", "set", "acme/custom-1"))
	require.NoError(t, h.run(t, "models"))
	assert.Contains(t, h.out.String(), "Custom")
	assert.Contains(t, h.out.String(), "acme/custom-1")
}

func TestModels_Remote(t *testing.T) {
	h := newHarness(t)
	cat := &fakeCatalogue{models: []cloud.ModelInfo{{ID: "openai/gpt-4o", Name: "GPT-4o", ContextLength: 128000}}}
	h.env.Catalogue = cat

	err := h.run(t, "models", "--remote")
	assert.ErrorIs(t, err, model.ErrPrecondition)

	h.ready(t)
	require.NoError(t, h.run(t, "models", "list", "--remote"))
	assert.Equal(t, "sk-good", cat.secret)
	assert.Contains(t, h.out.String(), "openai/gpt-4o")
	assert.Contains(t, h.out.String(), "128k ctx")
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsReplyAndSaves(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	require.NoError(t, h.run(t, "ask", "--model", "openai/gpt-4o", "hello"))
	assert.Contains(t, h.out.String(), "**pong**")
	assert.Equal(t, "openai/gpt-4o", h.client.lastModel)

	snap := h.env.Ctrl.Snapshot()
	assert.Len(t, snap.Sessions, 2, "ask starts a fresh chat")
	cur, ok := snap.CurrentSession()
	require.True(t, ok)
	require.Len(t, cur.Messages, 2)
	assert.Equal(t, "hello", cur.Messages[0].Content)
}

func TestAsk_ContinuesSessionFromStdin(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	sess := h.env.Ctrl.Snapshot().Sessions[0]
	h.env.In = strings.NewReader("  from a pipe \n")

	require.NoError(t, h.run(t, "--json", "ask", "-s", sess.ID, "-"))
	var res AskResult
	decodeEnvelope(t, h.out.Bytes(), &res)
	assert.Equal(t, sess.ID, res.SessionID)
	assert.Equal(t, "**pong**", res.Reply)
	require.Len(t, h.client.lastMsgs, 1)
	assert.Equal(t, "from a pipe", h.client.lastMsgs[0].Content)
}

func TestAsk_Failures(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, "ask", "hello")
	assert.Equal(t, ExitKeyError, GetExitCode(err))

	h.ready(t)
	h.client.err = &cloud.CompletionError{Status: 401, Detail: "No auth credentials found"}
	err = h.run(t, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get response: API error (401)")
	assert.Equal(t, ExitNetworkError, GetExitCode(err))

	cur, _ := h.env.Ctrl.Snapshot().CurrentSession()
	assert.Empty(t, cur.Messages, "the optimistic message is rolled back")
}

// =============================================================================
// CHAT REPL
// =============================================================================

func TestChat_ScriptedSession(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	h.env.In = strings.NewReader("hello\n/model GPT-4o\n/new\n/list\n/switch 2\n/history\n/bogus\n/quit\n")

	require.NoError(t, h.run(t, "chat"))
	out := h.out.String()
	assert.Contains(t, out, "**pong**")
	assert.Contains(t, out, "Switched to model: GPT-4o")
	assert.Contains(t, out, " 2. ")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "Saved")
	assert.Contains(t, h.errOut.String(), "unknown command: /bogus")

	snap := h.env.Ctrl.Snapshot()
	assert.Len(t, snap.Sessions, 2)
	assert.Equal(t, "openai/gpt-4o", snap.SelectedModel)
	assert.Equal(t, snap.Sessions[1].ID, snap.CurrentSessionID)
}

func TestChat_ExitsOnEOF(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	h.env.In = strings.NewReader("/rename Scratch\n")

	require.NoError(t, h.run(t, "chat"))
	cur, ok := h.env.Ctrl.Snapshot().CurrentSession()
	require.True(t, ok)
	assert.Equal(t, "Scratch", cur.Title)
}

func TestChat_NeedsKey(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, "chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routerchat keys add")
	assert.Equal(t, ExitKeyError, GetExitCode(err))
}

// =============================================================================
// ERRORS AND OUTPUT
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{ErrMissingArgument("ID", ""), ExitUsageError},
		{model.Validationf("bad"), ExitUsageError},
		{config.ValidateErrors{{Field: "ui.sidebar_width", Message: "too small"}}, ExitConfigError},
		{model.Preconditionf("no key"), ExitKeyError},
		{&cloud.CompletionError{Status: 500, Detail: "x"}, ExitNetworkError},
		{model.NotFoundf("gone"), ExitNotFoundError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "sessions show", model.NotFoundf("no chat matches %q", "abcd"), true)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "no chat matches")
	assert.Equal(t, "NotFound", resp.ErrorKind)
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintVersion(&buf, false))
	assert.Contains(t, buf.String(), "routerchat "+Version)
}
