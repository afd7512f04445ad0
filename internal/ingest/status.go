// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package ingest

import (
	"context"
	"errors"

	"github.com/discovault/discovault/internal/database"
	"github.com/discovault/discovault/internal/models"
)

// KindStatus reports the stored state for one entity kind.
type KindStatus struct {
	Kind     models.EntityKind
	Rows     int64
	LastDump *models.DumpFile // nil when no dump was ingested yet
}

// IngestionStatus returns per-kind row counts and the most recent
// ingested dump for each kind. Read-only.
func (ing *Ingestor) IngestionStatus(ctx context.Context) ([]KindStatus, error) {
	out := make([]KindStatus, 0, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		rows, err := ing.db.CountRows(ctx, kind.Table())
		if err != nil {
			return nil, err
		}

		last, err := ing.db.LatestDumpFile(ctx, kind)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}

		out = append(out, KindStatus{Kind: kind, Rows: rows, LastDump: last})
	}
	return out, nil
}
