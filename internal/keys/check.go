// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jeranaias/routerchat/internal/model"
)

// Check is an in-flight status check handed out by BeginCheck.
type Check struct {
	KeyID  string
	Token  uint64
	Secret string
}

// BeginCheck moves the entry to checking and returns the check to run.
func (r *Registry) BeginCheck(id string) (Check, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return Check{}, model.NotFoundf("API key %q not found", id)
	}
	r.entries[i].Status = model.KeyChecking
	return Check{KeyID: id, Token: r.bumpLocked(id), Secret: r.entries[i].APIKey}, nil
}

// FinishCheck records the check outcome. It returns false and changes
// nothing when the check is stale: the key was deleted, edited, or checked
// again since BeginCheck.
func (r *Registry) FinishCheck(c Check, ok bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest[c.KeyID] != c.Token {
		return false
	}
	i := r.indexOf(c.KeyID)
	if i < 0 {
		return false
	}
	if ok {
		r.entries[i].Status = model.KeyValid
	} else {
		r.entries[i].Status = model.KeyInvalid
	}
	return true
}

// AbandonCheck returns the entry to unchecked when c is still the latest
// check for it. A stale check changes nothing.
func (r *Registry) AbandonCheck(c Check) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest[c.KeyID] != c.Token {
		return false
	}
	i := r.indexOf(c.KeyID)
	if i < 0 {
		return false
	}
	r.bumpLocked(c.KeyID)
	r.entries[i].Status = model.KeyUnchecked
	return true
}

// RunCheck sends the canary request for a check without holding the lock.
func (r *Registry) RunCheck(ctx context.Context, c Check) bool {
	if r.tester == nil {
		return false
	}
	return r.tester.Test(ctx, c.Secret, r.canaryModel)
}

// Settle runs c and records its outcome. A cancelled ctx says nothing about
// the key, so the check is abandoned and the context error returned.
func (r *Registry) Settle(ctx context.Context, c Check) error {
	ok := r.RunCheck(ctx, c)
	if err := ctx.Err(); err != nil {
		r.AbandonCheck(c)
		return err
	}
	r.FinishCheck(c, ok)
	return nil
}

// CheckStatus checks one key and returns its resulting status. When the
// result turned stale the current status is returned instead.
func (r *Registry) CheckStatus(ctx context.Context, id string) (model.KeyStatus, error) {
	c, err := r.BeginCheck(id)
	if err != nil {
		return "", err
	}
	if err := r.Settle(ctx, c); err != nil {
		return "", err
	}
	e, ok := r.Get(id)
	if !ok {
		return "", model.NotFoundf("API key %q was removed during the check", id)
	}
	return e.Status, nil
}

// CheckAllOptions bounds a CheckAll run.
type CheckAllOptions struct {
	// Concurrency is the number of checks in flight at once.
	Concurrency int
	// RatePerSec limits how fast checks start. Zero means unlimited.
	RatePerSec float64
	// OnBegin is called after each key enters checking.
	OnBegin func(id string)
	// OnFinish is called after each result was applied or dropped. It is
	// not called for checks abandoned on cancellation.
	OnFinish func(id string, status model.KeyStatus)
}

// CheckAll checks every key. Rejected keys are statuses, not errors, so
// the only error returned is context cancellation. Checks cut short by it
// leave their keys unchecked.
func (r *Registry) CheckAll(ctx context.Context, opts CheckAllOptions) error {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	limiter := rate.NewLimiter(limit, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, e := range r.List() {
		id := e.ID
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			c, err := r.BeginCheck(id)
			if err != nil {
				// deleted while queued
				return nil
			}
			if opts.OnBegin != nil {
				opts.OnBegin(id)
			}
			if err := r.Settle(ctx, c); err != nil {
				return err
			}
			if opts.OnFinish != nil {
				st := model.KeyStatus("")
				if e, ok := r.Get(id); ok {
					st = e.Status
				}
				opts.OnFinish(id, st)
			}
			return nil
		})
	}
	return g.Wait()
}
