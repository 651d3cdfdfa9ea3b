// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/routerchat/internal/model"
)

// backends returns one fresh KV of every kind.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	fileKV, err := NewFileKV(filepath.Join(dir, "data"))
	require.NoError(t, err)
	sqliteKV, err := NewSQLiteKV(filepath.Join(dir, "routerchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteKV.Close() })

	return map[string]KV{
		"memory": NewMemoryKV(),
		"file":   fileKV,
		"sqlite": sqliteKV,
	}
}

func sampleSessions() []model.Session {
	base := time.UnixMilli(1735732800000)
	return []model.Session{
		{
			ID:        "s2",
			Title:     "Second",
			CreatedAt: base.Add(time.Hour),
			Model:     "openai/gpt-4o",
			APIKeyID:  "k1",
			Messages: []model.Message{
				{ID: "m1", Role: model.RoleUser, Content: "hello 👋", Timestamp: base.Add(time.Hour + time.Second)},
				{ID: "m2", Role: model.RoleAssistant, Content: "**hi**\n\n```go\nfmt.Println()\n```", Timestamp: base.Add(time.Hour + 2*time.Second)},
			},
		},
		{
			ID:        "s1",
			Title:     "First",
			CreatedAt: base,
			Model:     "google/gemini-2.0-flash-exp:free",
			Messages:  []model.Message{},
		},
	}
}

func TestKVBackends_GetSetDelete(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set("slot", "one"))
			require.NoError(t, kv.Set("slot", "two"))
			v, ok, err := kv.Get("slot")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "two", v)

			require.NoError(t, kv.Delete("slot"))
			require.NoError(t, kv.Delete("slot"))
			_, ok, _ = kv.Get("slot")
			assert.False(t, ok)
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := NewStore(kv, nil)
			keys := []model.KeyEntry{
				{ID: "k1", Name: "personal", APIKey: "sk-or-1", Status: model.KeyValid},
				{ID: "k2", Name: "work", APIKey: "sk-or-2", Status: model.KeyInvalid},
			}
			require.NoError(t, s.SaveKeys(keys))
			require.NoError(t, s.SaveActiveKeyID("k1"))
			require.NoError(t, s.SaveSelectedModel("openai/gpt-4o"))
			require.NoError(t, s.SaveSessions(sampleSessions()))

			st := NewStore(kv, nil).Load()
			assert.Equal(t, keys, st.Keys)
			assert.Equal(t, "k1", st.ActiveKeyID)
			assert.Equal(t, "openai/gpt-4o", st.SelectedModel)

			want := sampleSessions()
			require.Len(t, st.Sessions, len(want))
			for i := range want {
				got := st.Sessions[i]
				assert.Equal(t, want[i].ID, got.ID, "order must survive a round trip")
				assert.Equal(t, want[i].Title, got.Title)
				assert.Equal(t, want[i].Model, got.Model)
				assert.Equal(t, want[i].APIKeyID, got.APIKeyID)
				assert.True(t, want[i].CreatedAt.Equal(got.CreatedAt))
				require.Len(t, got.Messages, len(want[i].Messages))
				for j := range want[i].Messages {
					assert.Equal(t, want[i].Messages[j].ID, got.Messages[j].ID)
					assert.Equal(t, want[i].Messages[j].Role, got.Messages[j].Role)
					assert.Equal(t, want[i].Messages[j].Content, got.Messages[j].Content)
					assert.True(t, want[i].Messages[j].Timestamp.Equal(got.Messages[j].Timestamp))
				}
			}
		})
	}
}

func TestStore_LoadDefaults(t *testing.T) {
	st := NewStore(NewMemoryKV(), nil).Load()
	assert.Empty(t, st.Keys)
	assert.Empty(t, st.ActiveKeyID)
	assert.Equal(t, model.DefaultModel(), st.SelectedModel)
	assert.Empty(t, st.Sessions)
	assert.Empty(t, st.Present)

	st = NewStore(NewMemoryKV(), nil).WithDefaultModel("x/y").Load()
	assert.Equal(t, "x/y", st.SelectedModel)
}

func TestStore_ClearActiveKeyRemovesSlot(t *testing.T) {
	kv := NewMemoryKV()
	s := NewStore(kv, nil)
	require.NoError(t, s.SaveActiveKeyID("k1"))
	require.NoError(t, s.SaveActiveKeyID(""))

	_, ok, _ := kv.Get(SlotActiveKeyID)
	assert.False(t, ok)
}

func TestStore_MalformedSlotsFallBack(t *testing.T) {
	tests := []struct {
		name string
		slot string
		raw  string
	}{
		{"keys not json", SlotKeys, "{oops"},
		{"keys object", SlotKeys, `{"id":"k1"}`},
		{"keys missing field", SlotKeys, `[{"id":"k1","name":"a","status":"valid"}]`},
		{"keys bad status", SlotKeys, `[{"id":"k1","name":"a","apiKey":"sk","status":"expired"}]`},
		{"keys null element", SlotKeys, `[null]`},
		{"sessions duplicate id", SlotSessions, `[{"id":"a","title":"t","messages":[],"createdAt":1,"model":"m"},{"id":"a","title":"t","messages":[],"createdAt":2,"model":"m"}]`},
		{"sessions bad role", SlotSessions, `[{"id":"a","title":"t","messages":[{"id":"m","role":"robot","content":"x","timestamp":1}],"createdAt":1,"model":"m"}]`},
		{"sessions string timestamp", SlotSessions, `[{"id":"a","title":"t","messages":[],"createdAt":"yesterday","model":"m"}]`},
		{"sessions null", SlotSessions, `null`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := NewMemoryKV()
			require.NoError(t, kv.Set(tc.slot, tc.raw))

			st := NewStore(kv, nil).Load()
			assert.True(t, st.Present[tc.slot])
			assert.Empty(t, st.Keys)
			assert.Empty(t, st.Sessions)
		})
	}
}

func TestStore_LoadsBrowserFormat(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(SlotKeys, `[{"id":"lx3k2","name":"Main","apiKey":"sk-or-v1-abc","status":"checking"}]`)
	kv.Set(SlotActiveKeyID, "lx3k2")
	kv.Set(SlotSessions, `[{"id":"1719000000000","title":"Chat 1 (10:00:00 AM)","messages":[{"id":"1719000001000","role":"user","content":"hi","timestamp":1719000001000}],"createdAt":1719000000000,"model":"openai/gpt-4o","apiKeyId":"lx3k2"}]`)

	st := NewStore(kv, nil).Load()
	require.Len(t, st.Keys, 1)
	assert.Equal(t, model.KeyChecking, st.Keys[0].Status, "storage reports what was persisted")
	require.Len(t, st.Sessions, 1)
	assert.Equal(t, "lx3k2", st.Sessions[0].APIKeyID)
	assert.Equal(t, int64(1719000001000), st.Sessions[0].Messages[0].Timestamp.UnixMilli())
}

func TestFileKV_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions")
	}
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(SlotKeys, "[]"))

	info, err := os.Stat(filepath.Join(dir, SlotKeys))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	assert.Error(t, kv.Set("../escape", "x"))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	kv, err := Open(Options{Backend: "sqlite", DataDir: dir})
	require.NoError(t, err)
	_, isSQLite := kv.(*SQLiteKV)
	assert.True(t, isSQLite)
	require.NoError(t, kv.Close())
	assert.FileExists(t, filepath.Join(dir, "routerchat.db"))

	kv, err = Open(Options{DataDir: dir})
	require.NoError(t, err)
	_, isFile := kv.(*FileKV)
	assert.True(t, isFile)

	_, err = Open(Options{Backend: "redis"})
	assert.Error(t, err)

	mem, err := Open(Options{Backend: "memory"})
	require.NoError(t, err)
	require.NoError(t, mem.Close())
	assert.ErrorIs(t, mem.Set("k", "v"), ErrClosed)
}
