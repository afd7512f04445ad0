// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package discogs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/discovault/discovault/internal/metrics"
)

// Throttle enforces the two client-side rate constraints the Discogs
// API expects: a minimum gap between consecutive requests and a hard
// ceiling on requests inside any rolling window. The gap uses a token
// bucket; the ceiling keeps a timestamp ring of recent sends, because
// a bucket cannot express an exact sliding-window bound.
type Throttle struct {
	limiter *rate.Limiter

	mu     sync.Mutex
	window time.Duration
	max    int
	sent   []time.Time
}

// NewThrottle builds a throttle allowing at most maxPerWindow requests
// per rolling window, with at least minInterval between requests.
func NewThrottle(maxPerWindow int, window, minInterval time.Duration) *Throttle {
	if maxPerWindow < 1 {
		maxPerWindow = 1
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Throttle{
		limiter: rate.NewLimiter(limit, 1),
		window:  window,
		max:     maxPerWindow,
		sent:    make([]time.Time, 0, maxPerWindow),
	}
}

// Wait blocks until a request may be sent, or until ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.RecordThrottleWait(time.Since(start))
	}()

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	for {
		t.mu.Lock()
		now := time.Now()
		t.evict(now)

		if len(t.sent) < t.max {
			t.sent = append(t.sent, now)
			t.mu.Unlock()
			return nil
		}

		// Sleep until the oldest send leaves the window, then
		// re-check under the lock.
		wait := t.sent[0].Add(t.window).Sub(now)
		t.mu.Unlock()

		if wait <= 0 {
			continue
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// evict drops timestamps that fell out of the window. Caller holds mu.
func (t *Throttle) evict(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.sent) && !t.sent[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.sent = append(t.sent[:0], t.sent[i:]...)
	}
}

// Pending returns how many sends currently count against the window.
func (t *Throttle) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evict(time.Now())
	return len(t.sent)
}
