// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package dump

import (
	"regexp"
	"time"
)

// Dump files are published as discogs_YYYYMMDD_kind.xml.gz.
var fileNamePattern = regexp.MustCompile(`^discogs_(\d{8})_[a-z]+\.xml(\.gz)?$`)

// FileDate extracts the publication date from a dump file name.
// Returns false for names that do not follow the published naming
// scheme; ingestion does not depend on it.
func FileDate(name string) (time.Time, bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
