// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package discogs

import "errors"

// Sentinel errors for Discogs API failures. Callers branch on these
// with errors.Is; permanent failures are never retried by the client.
var (
	// ErrAuth covers HTTP 401 and 403 responses.
	ErrAuth = errors.New("discogs: authentication failed")

	// ErrNotFound covers HTTP 404 responses.
	ErrNotFound = errors.New("discogs: resource not found")

	// ErrRateLimited is returned when HTTP 429 persists past the
	// retry budget.
	ErrRateLimited = errors.New("discogs: rate limited")

	// ErrMalformedResponse is returned when a 2xx body cannot be
	// decoded into the expected shape.
	ErrMalformedResponse = errors.New("discogs: malformed response")
)

// IsPermanent reports whether the error describes the request itself
// (bad credentials, missing resource) rather than API health.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrNotFound)
}
