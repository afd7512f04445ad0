// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package discogs

import (
	"context"
	"testing"
	"time"
)

func TestThrottleWindowCeiling(t *testing.T) {
	const (
		maxPerWindow = 5
		window       = 200 * time.Millisecond
	)
	throttle := NewThrottle(maxPerWindow, window, 0)
	ctx := context.Background()

	var stamps []time.Time
	for i := 0; i < 12; i++ {
		if err := throttle.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
		stamps = append(stamps, time.Now())
	}

	// No window of the configured width may contain more than
	// maxPerWindow sends.
	for i := range stamps {
		count := 1
		for j := i + 1; j < len(stamps); j++ {
			if stamps[j].Sub(stamps[i]) < window {
				count++
			}
		}
		if count > maxPerWindow {
			t.Errorf("window starting at send %d holds %d sends, want <= %d", i, count, maxPerWindow)
		}
	}
}

func TestThrottleMinInterval(t *testing.T) {
	throttle := NewThrottle(100, time.Minute, 20*time.Millisecond)
	ctx := context.Background()

	var prev time.Time
	for i := 0; i < 4; i++ {
		if err := throttle.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
		now := time.Now()
		if i > 0 {
			// Allow a small scheduling tolerance below the floor.
			if gap := now.Sub(prev); gap < 15*time.Millisecond {
				t.Errorf("gap %d = %v, want >= 20ms", i, gap)
			}
		}
		prev = now
	}
}

func TestThrottleContextCancellation(t *testing.T) {
	throttle := NewThrottle(1, time.Minute, 0)
	ctx := context.Background()

	if err := throttle.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	// Window is full for a minute; a short deadline must abort the wait.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := throttle.Wait(shortCtx); err == nil {
		t.Error("expected context error while window is full")
	}
}

func TestThrottlePending(t *testing.T) {
	throttle := NewThrottle(10, 100*time.Millisecond, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := throttle.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if n := throttle.Pending(); n != 3 {
		t.Errorf("pending = %d, want 3", n)
	}

	time.Sleep(120 * time.Millisecond)
	if n := throttle.Pending(); n != 0 {
		t.Errorf("pending after window = %d, want 0", n)
	}
}
