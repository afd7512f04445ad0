// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

// Package discogs implements the rate-limited Discogs REST client used
// by the collection synchronizer.
package discogs

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/logging"
	"github.com/discovault/discovault/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is read
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// ClientInterface is the API surface the collection syncer depends on.
// Implemented by Client and CircuitBreakerClient; tests substitute mocks.
type ClientInterface interface {
	Identity(ctx context.Context) (*Identity, error)
	CollectionFolders(ctx context.Context, username string) (*FoldersResponse, error)
	CollectionPage(ctx context.Context, username string, folderID int64, page, perPage int) (*CollectionPageResponse, error)
}

// Client talks to the Discogs API with client-side throttling, token
// authentication, and retry with backoff for transient failures.
//
// Thread safety: safe for concurrent use; the throttle serializes the
// request schedule across goroutines.
type Client struct {
	baseURL        string
	token          string
	userAgent      string
	http           *http.Client
	throttle       *Throttle
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a Discogs API client from configuration.
func NewClient(cfg *config.DiscogsConfig) *Client {
	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 - operator opt-in for self-signed proxies
		transport = t
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		throttle:       NewThrottle(cfg.RequestsPerWindow, cfg.RateWindow, cfg.MinRequestInterval),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// get performs one throttled GET with retries, decoding a 2xx body
// into result. Authentication and not-found failures are permanent;
// 429 and 5xx are retried with exponential backoff, honoring a
// Retry-After header when the server sends one.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, result any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := c.throttle.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Discogs token="+c.token)
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			metrics.RecordAPIRetry("network")
			if waitErr := c.backoff(ctx, attempt, 0); waitErr != nil {
				return waitErr
			}
			continue
		}

		metrics.RecordAPIRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(result)
			closeBody(resp)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			closeBody(resp)
			return fmt.Errorf("%w (HTTP %d)", ErrAuth, resp.StatusCode)

		case resp.StatusCode == http.StatusNotFound:
			closeBody(resp)
			return fmt.Errorf("%w: %s", ErrNotFound, path)

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			closeBody(resp)
			lastErr = fmt.Errorf("%w (HTTP 429)", ErrRateLimited)
			metrics.RecordAPIRetry("rate_limited")
			logging.Warn().
				Str("endpoint", endpoint).
				Dur("retry_after", retryAfter).
				Int("attempt", attempt+1).
				Msg("Discogs rate limit hit")
			if waitErr := c.backoff(ctx, attempt, retryAfter); waitErr != nil {
				return waitErr
			}
			continue

		case resp.StatusCode >= 500:
			body := readBodyForError(resp.Body)
			closeBody(resp)
			lastErr = fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, string(body))
			metrics.RecordAPIRetry("server_error")
			if waitErr := c.backoff(ctx, attempt, 0); waitErr != nil {
				return waitErr
			}
			continue

		default:
			body := readBodyForError(resp.Body)
			closeBody(resp)
			return fmt.Errorf("%s request failed with status %d: %s", endpoint, resp.StatusCode, string(body))
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// backoff waits the exponential delay for the given attempt, preferring
// an explicit server-provided delay when present.
func (c *Client) backoff(ctx context.Context, attempt int, retryAfter time.Duration) error {
	delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
	if retryAfter > 0 {
		delay = retryAfter
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseRetryAfter handles the integer-seconds form of the header.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func closeBody(resp *http.Response) {
	_ = resp.Body.Close()
}

// readBodyForError reads at most maxErrorBodySize of a response body
// for inclusion in error messages.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

// Identity resolves the authenticated account via /oauth/identity.
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	var out Identity
	if err := c.get(ctx, "identity", "/oauth/identity", nil, &out); err != nil {
		return nil, err
	}
	if out.Username == "" {
		return nil, fmt.Errorf("%w: identity missing username", ErrMalformedResponse)
	}
	return &out, nil
}

// CollectionFolders lists a user's collection folders.
func (c *Client) CollectionFolders(ctx context.Context, username string) (*FoldersResponse, error) {
	path := fmt.Sprintf("/users/%s/collection/folders", url.PathEscape(username))
	var out FoldersResponse
	if err := c.get(ctx, "folders", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CollectionPage fetches one page of a collection folder. Folder 0 is
// the Discogs "All" pseudo-folder.
func (c *Client) CollectionPage(ctx context.Context, username string, folderID int64, page, perPage int) (*CollectionPageResponse, error) {
	path := fmt.Sprintf("/users/%s/collection/folders/%d/releases", url.PathEscape(username), folderID)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("sort", "added")
	query.Set("sort_order", "asc")

	var out CollectionPageResponse
	if err := c.get(ctx, "collection", path, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
