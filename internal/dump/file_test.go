// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package dump

import (
	"testing"
	"time"
)

func TestFileDate(t *testing.T) {
	tests := []struct {
		name string
		want time.Time
		ok   bool
	}{
		{"discogs_20260801_releases.xml.gz", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), true},
		{"discogs_20260801_artists.xml", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), true},
		{"discogs_20261301_labels.xml.gz", time.Time{}, false}, // month 13
		{"releases.xml.gz", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := FileDate(tt.name)
		if ok != tt.ok {
			t.Errorf("FileDate(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("FileDate(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
