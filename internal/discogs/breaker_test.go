// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package discogs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPermanentErrorsDoNotOpenCircuit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cbc := NewCircuitBreakerClient(testClientConfig(server.URL))

	// Well past the breaker's minimum request count; every call must
	// still surface the not-found error rather than an open circuit.
	for i := 0; i < 15; i++ {
		_, err := cbc.CollectionFolders(context.Background(), "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: err = %v, want ErrNotFound", i+1, err)
		}
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(ErrAuth) || !IsPermanent(ErrNotFound) {
		t.Error("auth/not-found should be permanent")
	}
	if IsPermanent(ErrRateLimited) || IsPermanent(ErrMalformedResponse) || IsPermanent(nil) {
		t.Error("transient or nil errors reported as permanent")
	}
}
