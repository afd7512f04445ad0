// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

// Package collection synchronizes per-user Discogs collections into
// the local database, page by page through the rate-limited API
// client. Each run is recorded as a sync_status audit row.
package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/database"
	"github.com/discovault/discovault/internal/discogs"
	"github.com/discovault/discovault/internal/logging"
	"github.com/discovault/discovault/internal/metrics"
	"github.com/discovault/discovault/internal/models"
)

// allFolderID is the virtual Discogs folder containing every item.
const allFolderID = 0

// syncTypeCollection is the sync_status audit row type for full
// collection syncs.
const syncTypeCollection = "collection"

// Syncer pulls a user's collection from the Discogs API into the
// database. Pages are committed one transaction each, so an
// interrupted sync keeps the pages already written.
type Syncer struct {
	db     *database.DB
	client discogs.ClientInterface
	cfg    *config.DiscogsConfig
}

// SyncOptions control one collection sync run.
type SyncOptions struct {
	// Username overrides the configured Discogs username.
	Username string

	// Force clears the user's stored collection before repopulating,
	// which also removes items deleted remotely.
	Force bool
}

// SyncStats summarize one finished (or aborted) sync run.
type SyncStats struct {
	StatusID  string
	Outcome   string
	Processed int
	Added     int
	Updated   int
	Cleared   int64
	Duration  time.Duration
}

// NewSyncer creates a Syncer using the given API client.
func NewSyncer(db *database.DB, client discogs.ClientInterface, cfg *config.DiscogsConfig) *Syncer {
	return &Syncer{db: db, client: client, cfg: cfg}
}

// SyncCollection runs one full collection sync. The audit row outcome
// is "success" when every page landed, "partial" when the run was
// interrupted after committing at least one item, and "failed"
// otherwise.
func (s *Syncer) SyncCollection(ctx context.Context, opts SyncOptions) (SyncStats, error) {
	var stats SyncStats
	start := time.Now()

	username := opts.Username
	if username == "" {
		username = s.cfg.Username
	}
	if username == "" {
		return stats, errors.New("no Discogs username configured")
	}

	user, err := s.db.GetOrCreateUser(ctx, username)
	if err != nil {
		return stats, err
	}

	if err := s.resolveIdentity(ctx, user, username); err != nil {
		return stats, err
	}

	statusID, err := s.db.BeginSyncStatus(ctx, user.ID, syncTypeCollection)
	if err != nil {
		return stats, err
	}
	stats.StatusID = statusID

	syncErr := s.run(ctx, user, username, opts, &stats)

	stats.Duration = time.Since(start)
	stats.Outcome = outcomeFor(syncErr, stats.Processed)

	errDetail := ""
	if syncErr != nil {
		errDetail = syncErr.Error()
	}
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.db.FinishSyncStatus(finishCtx, statusID, stats.Outcome,
		stats.Processed, stats.Added, stats.Updated, errDetail); err != nil {
		logging.Error().Err(err).Str("status_id", statusID).Msg("Failed to finish sync status")
	}
	metrics.RecordSyncOutcome(stats.Outcome, stats.Duration, stats.Processed)

	if stats.Outcome == models.SyncOutcomeSuccess {
		if err := s.db.TouchUserLastSync(finishCtx, user.ID, time.Now().UTC()); err != nil {
			logging.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to stamp last sync")
		}
	}

	logging.Info().
		Str("username", username).
		Str("outcome", stats.Outcome).
		Int("processed", stats.Processed).
		Int("added", stats.Added).
		Int("updated", stats.Updated).
		Dur("elapsed", stats.Duration).
		Msg("Collection sync finished")
	return stats, syncErr
}

// resolveIdentity verifies the token and stores the remote account id.
// A token belonging to a different account than the configured
// username is almost always a misconfiguration, so it is logged loudly
// but not fatal: collection endpoints are public for public collections.
func (s *Syncer) resolveIdentity(ctx context.Context, user *models.User, username string) error {
	identity, err := s.client.Identity(ctx)
	if err != nil {
		return fmt.Errorf("identity check failed: %w", err)
	}

	if !strings.EqualFold(identity.Username, username) {
		logging.Warn().
			Str("token_username", identity.Username).
			Str("sync_username", username).
			Msg("Token identity does not match sync username")
	}
	if identity.ID > 0 && strings.EqualFold(identity.Username, username) {
		if err := s.db.SetUserRemoteID(ctx, user.ID, identity.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) run(ctx context.Context, user *models.User, username string, opts SyncOptions, stats *SyncStats) error {
	if err := s.syncFolders(ctx, user, username); err != nil {
		return err
	}

	if opts.Force {
		err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
			n, err := database.ClearUserCollection(ctx, tx, user.ID)
			stats.Cleared = n
			return err
		})
		if err != nil {
			return err
		}
		if stats.Cleared > 0 {
			logging.Info().Int64("cleared", stats.Cleared).Msg("Cleared stored collection before full resync")
		}
	}

	existing, err := s.existingInstanceKeys(ctx, user.ID)
	if err != nil {
		return err
	}

	page := 1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := s.client.CollectionPage(ctx, username, allFolderID, page, s.cfg.PageSize)
		if err != nil {
			return fmt.Errorf("collection page %d: %w", page, err)
		}

		if err := s.writePage(ctx, user.ID, resp.Releases, existing, stats); err != nil {
			return err
		}

		logging.Debug().
			Int("page", page).
			Int("pages", resp.Pagination.Pages).
			Int("items", len(resp.Releases)).
			Msg("Collection page synced")

		if page >= resp.Pagination.Pages || len(resp.Releases) == 0 {
			return nil
		}
		page++
	}
}

// syncFolders mirrors the remote folder list. Folder metadata is
// advisory; a failure here fails the run before any item writes.
func (s *Syncer) syncFolders(ctx context.Context, user *models.User, username string) error {
	resp, err := s.client.CollectionFolders(ctx, username)
	if err != nil {
		return fmt.Errorf("folder listing failed: %w", err)
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, f := range resp.Folders {
			folder := &models.CollectionFolder{
				UserID:    user.ID,
				ID:        f.ID,
				Name:      f.Name,
				ItemCount: f.Count,
			}
			if err := database.UpsertCollectionFolder(ctx, tx, folder); err != nil {
				return err
			}
		}
		return nil
	})
}

// writePage commits one page of collection items in a single
// transaction. Releases the dumps have not provided yet get a stub row
// so the foreign relationship holds until the next dump ingestion
// fills in the full record.
func (s *Syncer) writePage(ctx context.Context, userID int64, items []discogs.CollectionItem,
	existing map[instanceKey]struct{}, stats *SyncStats) error {

	if len(items) == 0 {
		return nil
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			title := item.BasicInformation.Title
			if title == "" {
				title = fmt.Sprintf("Release %d", item.ID)
			}
			if err := database.EnsureStubRelease(ctx, tx, item.ID, title, models.SourceAPI); err != nil {
				return err
			}

			row := &models.CollectionItem{
				UserID:     userID,
				ReleaseID:  item.ID,
				InstanceID: item.InstanceID,
				FolderID:   item.FolderID,
				Rating:     item.Rating,
				Notes:      optNotes(item.Notes),
				DateAdded:  parseDateAdded(item.DateAdded),
			}
			if err := database.UpsertCollectionItem(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit page of %d items: %w", len(items), err)
	}

	for _, item := range items {
		key := instanceKey{releaseID: item.ID, instanceID: item.InstanceID}
		if _, ok := existing[key]; ok {
			stats.Updated++
		} else {
			stats.Added++
			existing[key] = struct{}{}
		}
		stats.Processed++
	}
	return nil
}

type instanceKey struct {
	releaseID  int64
	instanceID int64
}

func (s *Syncer) existingInstanceKeys(ctx context.Context, userID int64) (map[instanceKey]struct{}, error) {
	items, err := s.db.GetCollectionItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make(map[instanceKey]struct{}, len(items))
	for _, it := range items {
		keys[instanceKey{releaseID: it.ReleaseID, instanceID: it.InstanceID}] = struct{}{}
	}
	return keys, nil
}

// outcomeFor maps a run error to the audit outcome. Cancellation and
// mid-run failures after committed pages are partial syncs.
func outcomeFor(err error, processed int) string {
	if err == nil {
		return models.SyncOutcomeSuccess
	}
	if processed > 0 || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.SyncOutcomePartial
	}
	return models.SyncOutcomeFailed
}

func optNotes(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseDateAdded parses the API's date_added timestamps. The field is
// RFC3339 with a numeric zone offset; unparseable values are dropped
// rather than failing the item.
func parseDateAdded(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
