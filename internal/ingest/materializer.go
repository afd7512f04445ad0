// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/discovault/discovault/internal/database"
	"github.com/discovault/discovault/internal/logging"
	"github.com/discovault/discovault/internal/metrics"
	"github.com/discovault/discovault/internal/models"
)

// MaterializeOptions control one materialization run.
type MaterializeOptions struct {
	// ReleaseIDs restricts the run to the given releases. Nil means
	// every release with a stored document.
	ReleaseIDs []int64

	// PageSize is the number of releases rebuilt per transaction.
	// Zero uses the ingestion batch size.
	PageSize int
}

// MaterializeStats summarize a materialization run.
type MaterializeStats struct {
	Releases int64 // releases whose join tables were rebuilt
	Skipped  int64 // stored documents that failed to decode
	Artists  int64
	Labels   int64
	Tracks   int64
	Duration time.Duration
}

// MaterializeRelationships rebuilds release_artists, release_labels,
// and tracks from the stored raw documents. The rebuild is
// delete-then-insert per release, so running it twice leaves identical
// state and credits dropped upstream disappear locally too. Releases
// without a document (API stubs) are untouched.
func (ing *Ingestor) MaterializeRelationships(ctx context.Context, opts MaterializeOptions) (MaterializeStats, error) {
	var stats MaterializeStats
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
	}()

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = ing.cfg.BatchSize
	}

	logging.Info().
		Int("filter_ids", len(opts.ReleaseIDs)).
		Msg("Starting relationship materialization")

	if opts.ReleaseIDs != nil {
		for i := 0; i < len(opts.ReleaseIDs); i += pageSize {
			end := i + pageSize
			if end > len(opts.ReleaseIDs) {
				end = len(opts.ReleaseIDs)
			}
			rows, err := ing.db.GetReleaseDocuments(ctx, opts.ReleaseIDs[i:end])
			if err != nil {
				return stats, err
			}
			if err := ing.materializePage(ctx, rows, &stats); err != nil {
				return stats, err
			}
		}
	} else {
		var afterID int64
		for {
			rows, err := ing.db.ListReleaseDocuments(ctx, afterID, pageSize)
			if err != nil {
				return stats, err
			}
			if len(rows) == 0 {
				break
			}
			if err := ing.materializePage(ctx, rows, &stats); err != nil {
				return stats, err
			}
			afterID = rows[len(rows)-1].ID
		}
	}

	logging.Info().
		Int64("releases", stats.Releases).
		Int64("skipped", stats.Skipped).
		Int64("tracks", stats.Tracks).
		Dur("elapsed", time.Since(start)).
		Msg("Relationship materialization finished")
	return stats, nil
}

// materializePage rebuilds one page of releases in a single retried
// transaction.
func (ing *Ingestor) materializePage(ctx context.Context, rows []database.ReleaseDocumentRow, stats *MaterializeStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	var pageStats MaterializeStats
	err := ing.db.WithTxRetry(ctx, ing.cfg.RetryAttempts, ing.cfg.RetryDelay, func(tx *sql.Tx) error {
		pageStats = MaterializeStats{}
		for _, row := range rows {
			var doc models.ReleaseDocument
			if err := json.Unmarshal(row.Raw, &doc); err != nil {
				pageStats.Skipped++
				logging.Warn().Int64("release_id", row.ID).Err(err).Msg("Stored release document undecodable")
				continue
			}

			artists, labels, tracks := relationshipRows(row.ID, &doc)
			if err := database.ReplaceReleaseRelationships(ctx, tx, row.ID, artists, labels, tracks); err != nil {
				return err
			}
			pageStats.Releases++
			pageStats.Artists += int64(len(artists))
			pageStats.Labels += int64(len(labels))
			pageStats.Tracks += int64(len(tracks))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to materialize page of %d releases: %w", len(rows), err)
	}

	stats.Releases += pageStats.Releases
	stats.Skipped += pageStats.Skipped
	stats.Artists += pageStats.Artists
	stats.Labels += pageStats.Labels
	stats.Tracks += pageStats.Tracks

	metrics.MaterializeReleasesProcessed.Add(float64(pageStats.Releases))
	metrics.MaterializeRowsWritten.WithLabelValues("release_artists").Add(float64(pageStats.Artists))
	metrics.MaterializeRowsWritten.WithLabelValues("release_labels").Add(float64(pageStats.Labels))
	metrics.MaterializeRowsWritten.WithLabelValues("tracks").Add(float64(pageStats.Tracks))
	return nil
}
