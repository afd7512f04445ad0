// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package discogs

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/logging"
	"github.com/discovault/discovault/internal/metrics"
)

// CircuitBreakerClient wraps Client so a misbehaving Discogs API stops
// receiving traffic instead of absorbing the whole retry budget on
// every call.
//
// The breaker uses real time for its interval and timeout windows.
// Tests wanting determinism should mock the wrapped client instead.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
}

// NewCircuitBreakerClient creates a Discogs client with breaker
// protection. The circuit opens at a 60% failure rate over at least 10
// requests, stays open for 2 minutes, and allows 3 probe requests in
// half-open state.
func NewCircuitBreakerClient(cfg *config.DiscogsConfig) *CircuitBreakerClient {
	metrics.SetCircuitBreakerState(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "discogs-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		// Permanent errors describe the request, not API health, and
		// must surface as themselves instead of ErrOpenState.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening Discogs API circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Discogs API circuit state change")
			metrics.SetCircuitBreakerState(stateToInt(to))
		},
	})

	return &CircuitBreakerClient{
		client: NewClient(cfg),
		cb:     cb,
	}
}

// castResult safely type-casts the breaker result.
func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Identity resolves the authenticated account with breaker protection.
func (cbc *CircuitBreakerClient) Identity(ctx context.Context) (*Identity, error) {
	return castResult[Identity](cbc.cb.Execute(func() (any, error) {
		return cbc.client.Identity(ctx)
	}))
}

// CollectionFolders lists collection folders with breaker protection.
func (cbc *CircuitBreakerClient) CollectionFolders(ctx context.Context, username string) (*FoldersResponse, error) {
	return castResult[FoldersResponse](cbc.cb.Execute(func() (any, error) {
		return cbc.client.CollectionFolders(ctx, username)
	}))
}

// CollectionPage fetches one collection page with breaker protection.
func (cbc *CircuitBreakerClient) CollectionPage(ctx context.Context, username string, folderID int64, page, perPage int) (*CollectionPageResponse, error) {
	return castResult[CollectionPageResponse](cbc.cb.Execute(func() (any, error) {
		return cbc.client.CollectionPage(ctx, username, folderID, page, perPage)
	}))
}
