// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/routerchat/internal/model"
)

// fakeTester answers checks from a secret → result table.
type fakeTester struct {
	mu      sync.Mutex
	results map[string]bool
	calls   atomic.Int32
	models  []string
}

func newFakeTester(results map[string]bool) *fakeTester {
	return &fakeTester{results: results}
}

func (f *fakeTester) Test(ctx context.Context, secret, modelID string) bool {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, modelID)
	return f.results[secret]
}

func TestAdd_ValidatesAndTrims(t *testing.T) {
	reg := NewRegistry(nil, "")

	e, err := reg.Add("  work  ", "  sk-1  ")
	require.NoError(t, err)
	assert.Equal(t, "work", e.Name)
	assert.Equal(t, "sk-1", e.APIKey)
	assert.Equal(t, model.KeyUnchecked, e.Status)
	assert.NotEmpty(t, e.ID)

	_, err = reg.Add("   ", "sk")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = reg.Add("name", "")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 1, reg.Len())
}

func TestEdit_ResetsStatus(t *testing.T) {
	tester := newFakeTester(map[string]bool{"sk-good": true})
	reg := NewRegistry(tester, "")
	e, _ := reg.Add("a", "sk-good")

	st, err := reg.CheckStatus(context.Background(), e.ID)
	require.NoError(t, err)
	require.Equal(t, model.KeyValid, st)

	edited, err := reg.Edit(e.ID, "renamed", "sk-other")
	require.NoError(t, err)
	assert.Equal(t, e.ID, edited.ID)
	assert.Equal(t, model.KeyUnchecked, edited.Status)
	assert.Equal(t, "renamed", edited.Name)

	_, err = reg.Edit("missing", "x", "y")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetActive(t *testing.T) {
	tester := newFakeTester(map[string]bool{"sk-a": true, "sk-b": false})
	reg := NewRegistry(tester, "")
	a, _ := reg.Add("A", "sk-a")
	b, _ := reg.Add("B", "sk-b")
	reg.CheckStatus(context.Background(), a.ID)
	reg.CheckStatus(context.Background(), b.ID)

	require.NoError(t, reg.SetActive(a.ID))

	err := reg.SetActive(b.ID)
	assert.ErrorIs(t, err, model.ErrPrecondition)
	assert.Equal(t, a.ID, reg.ActiveID(), "failed activation must not move the pointer")

	assert.ErrorIs(t, reg.SetActive("nope"), model.ErrNotFound)

	require.NoError(t, reg.SetActive(""))
	_, ok := reg.Active()
	assert.False(t, ok)
}

func TestSetActive_RefusesChecking(t *testing.T) {
	reg := NewRegistry(nil, "")
	e, _ := reg.Add("A", "sk")
	_, err := reg.BeginCheck(e.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.SetActive(e.ID), model.ErrPrecondition)
}

func TestDelete_ReportsActive(t *testing.T) {
	reg := NewRegistry(nil, "")
	a, _ := reg.Add("A", "sk-a")
	b, _ := reg.Add("B", "sk-b")
	require.NoError(t, reg.SetActive(a.ID))

	wasActive, err := reg.Delete(b.ID)
	require.NoError(t, err)
	assert.False(t, wasActive)
	assert.Equal(t, a.ID, reg.ActiveID())

	wasActive, err = reg.Delete(a.ID)
	require.NoError(t, err)
	assert.True(t, wasActive)
	assert.Empty(t, reg.ActiveID())

	_, err = reg.Delete(a.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBulkImport_AllOrNothing(t *testing.T) {
	reg := NewRegistry(nil, "")
	reg.Add("existing", "sk-0")

	_, err := reg.BulkImport([]ImportEntry{{Name: "ok", APIKey: "sk-1"}, {Name: "x"}})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 1, reg.Len(), "registry must be unchanged after a rejected import")

	added, err := reg.BulkImport([]ImportEntry{{Name: "one", APIKey: "sk-1"}, {Name: "two", APIKey: "sk-2"}})
	require.NoError(t, err)
	assert.Len(t, added, 2)

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "existing", list[0].Name)
	assert.Equal(t, "two", list[2].Name)
	for _, e := range added {
		assert.Equal(t, model.KeyUnchecked, e.Status)
	}
}

// =============================================================================
// CHECK TESTS
// =============================================================================

func TestCheckStatus_UsesCanaryModel(t *testing.T) {
	tester := newFakeTester(map[string]bool{"sk-good": true})
	reg := NewRegistry(tester, "test/canary")
	good, _ := reg.Add("good", "sk-good")
	bad, _ := reg.Add("bad", "sk-bad")

	st, err := reg.CheckStatus(context.Background(), good.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyValid, st)

	st, err = reg.CheckStatus(context.Background(), bad.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyInvalid, st)

	assert.Equal(t, []string{"test/canary", "test/canary"}, tester.models)

	_, err = reg.CheckStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFinishCheck_DiscardsStaleResults(t *testing.T) {
	reg := NewRegistry(nil, "")
	e, _ := reg.Add("A", "sk")

	first, err := reg.BeginCheck(e.ID)
	require.NoError(t, err)
	second, err := reg.BeginCheck(e.ID)
	require.NoError(t, err)

	// The newer check lands first.
	assert.True(t, reg.FinishCheck(second, false))
	// The older one must not overwrite it.
	assert.False(t, reg.FinishCheck(first, true))

	got, _ := reg.Get(e.ID)
	assert.Equal(t, model.KeyInvalid, got.Status)
}

func TestFinishCheck_StaleAfterEditOrDelete(t *testing.T) {
	reg := NewRegistry(nil, "")
	e, _ := reg.Add("A", "sk")

	c, _ := reg.BeginCheck(e.ID)
	reg.Edit(e.ID, "A", "sk-new")
	assert.False(t, reg.FinishCheck(c, true))
	got, _ := reg.Get(e.ID)
	assert.Equal(t, model.KeyUnchecked, got.Status)

	c, _ = reg.BeginCheck(e.ID)
	reg.Delete(e.ID)
	assert.False(t, reg.FinishCheck(c, true))
}

func TestCheckAll(t *testing.T) {
	tester := newFakeTester(map[string]bool{"sk-1": true, "sk-3": true})
	reg := NewRegistry(tester, "")
	for _, s := range []string{"sk-1", "sk-2", "sk-3"} {
		reg.Add(s, s)
	}

	var finished atomic.Int32
	err := reg.CheckAll(context.Background(), CheckAllOptions{
		Concurrency: 2,
		OnFinish:    func(string, model.KeyStatus) { finished.Add(1) },
	})
	require.NoError(t, err)

	assert.EqualValues(t, 3, tester.calls.Load())
	assert.EqualValues(t, 3, finished.Load())
	statuses := map[string]model.KeyStatus{}
	for _, e := range reg.List() {
		statuses[e.APIKey] = e.Status
	}
	assert.Equal(t, model.KeyValid, statuses["sk-1"])
	assert.Equal(t, model.KeyInvalid, statuses["sk-2"])
	assert.Equal(t, model.KeyValid, statuses["sk-3"])
}

// blockingTester holds every check until its context ends, then rejects.
type blockingTester struct{}

func (blockingTester) Test(ctx context.Context, secret, modelID string) bool {
	<-ctx.Done()
	return false
}

func TestCheckAll_CancelledLeavesKeysUnchecked(t *testing.T) {
	reg := NewRegistry(blockingTester{}, "")
	a, _ := reg.Add("A", "sk-1")
	b, _ := reg.Add("B", "sk-2")

	var finished atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := reg.CheckAll(ctx, CheckAllOptions{
		Concurrency: 2,
		OnFinish:    func(string, model.KeyStatus) { finished.Add(1) },
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Zero(t, finished.Load())
	for _, id := range []string{a.ID, b.ID} {
		got, _ := reg.Get(id)
		assert.Equal(t, model.KeyUnchecked, got.Status, "cancelled check must not mark %s invalid", id)
	}
}

func TestCheckStatus_Cancelled(t *testing.T) {
	reg := NewRegistry(blockingTester{}, "")
	e, _ := reg.Add("A", "sk")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := reg.CheckStatus(ctx, e.ID)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, st)

	got, _ := reg.Get(e.ID)
	assert.Equal(t, model.KeyUnchecked, got.Status)
}

func TestAbandonCheck_IgnoresStaleCheck(t *testing.T) {
	reg := NewRegistry(nil, "")
	e, _ := reg.Add("A", "sk")

	old, _ := reg.BeginCheck(e.ID)
	current, _ := reg.BeginCheck(e.ID)
	assert.False(t, reg.AbandonCheck(old))
	got, _ := reg.Get(e.ID)
	assert.Equal(t, model.KeyChecking, got.Status)

	assert.True(t, reg.AbandonCheck(current))
	assert.False(t, reg.FinishCheck(current, true), "abandoned check is stale")
	got, _ = reg.Get(e.ID)
	assert.Equal(t, model.KeyUnchecked, got.Status)
}

func TestRestore(t *testing.T) {
	reg := NewRegistry(nil, "")
	reg.Restore([]model.KeyEntry{
		{ID: "k1", Name: "A", APIKey: "sk", Status: model.KeyChecking},
		{ID: "k2", Name: "B", APIKey: "sk", Status: model.KeyValid},
	}, "gone")

	k1, _ := reg.Get("k1")
	assert.Equal(t, model.KeyUnchecked, k1.Status)
	assert.Empty(t, reg.ActiveID(), "dangling active id must be dropped")

	reg.Restore(reg.List(), "k2")
	assert.Equal(t, "k2", reg.ActiveID())
}

// =============================================================================
// IMPORT PARSING TESTS
// =============================================================================

func TestParseImport(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"valid", `[{"name":"a","apiKey":"sk-1"},{"name":"b","apiKey":"sk-2","extra":1}]`, 2, false},
		{"empty array", `[]`, 0, false},
		{"missing apiKey", `[{"name":"x"}]`, 0, true},
		{"blank name", `[{"name":"  ","apiKey":"sk"}]`, 0, true},
		{"non-string key", `[{"name":"a","apiKey":42}]`, 0, true},
		{"element not object", `[{"name":"a","apiKey":"sk"}, "oops"]`, 0, true},
		{"object not array", `{"name":"a","apiKey":"sk"}`, 0, true},
		{"null", `null`, 0, true},
		{"garbage", `not json`, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseImport([]byte(tc.input))
			if tc.wantErr {
				assert.ErrorIs(t, err, model.ErrValidation)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}
}
