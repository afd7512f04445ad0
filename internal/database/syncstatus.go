// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/discovault/discovault/internal/models"
)

// BeginSyncStatus opens a sync audit row and returns its id. The row
// stays in outcome "partial" until finished.
func (db *DB) BeginSyncStatus(ctx context.Context, userID int64, syncType string) (string, error) {
	id := uuid.New().String()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_status (id, user_id, sync_type, outcome, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, userID, syncType, models.SyncOutcomePartial, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to begin sync status: %w", err)
	}
	return id, nil
}

// FinishSyncStatus closes a sync audit row with its final outcome and
// counters. errDetail may be empty.
func (db *DB) FinishSyncStatus(ctx context.Context, id, outcome string, processed, added, updated int, errDetail string) error {
	var detail any
	if errDetail != "" {
		detail = errDetail
	}
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sync_status SET
			outcome = ?,
			items_processed = ?,
			items_added = ?,
			items_updated = ?,
			error_detail = ?,
			completed_at = ?
		WHERE id = ?`,
		outcome, processed, added, updated, detail, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish sync status %s: %w", id, err)
	}
	return nil
}

// GetSyncStatus returns one sync audit row, or ErrNotFound.
func (db *DB) GetSyncStatus(ctx context.Context, id string) (*models.SyncStatus, error) {
	var s models.SyncStatus
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, sync_type, outcome, items_processed, items_added, items_updated,
			error_detail, started_at, completed_at
		FROM sync_status WHERE id = ?`, id).
		Scan(&s.ID, &s.UserID, &s.SyncType, &s.Outcome, &s.ItemsProcessed, &s.ItemsAdded,
			&s.ItemsUpdated, &s.ErrorDetail, &s.StartedAt, &s.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status %s: %w", id, err)
	}
	return &s, nil
}

// LatestSyncStatus returns a user's most recent sync row, or ErrNotFound.
func (db *DB) LatestSyncStatus(ctx context.Context, userID int64) (*models.SyncStatus, error) {
	var s models.SyncStatus
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, sync_type, outcome, items_processed, items_added, items_updated,
			error_detail, started_at, completed_at
		FROM sync_status WHERE user_id = ?
		ORDER BY started_at DESC LIMIT 1`, userID).
		Scan(&s.ID, &s.UserID, &s.SyncType, &s.Outcome, &s.ItemsProcessed, &s.ItemsAdded,
			&s.ItemsUpdated, &s.ErrorDetail, &s.StartedAt, &s.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sync status for user %d: %w", userID, err)
	}
	return &s, nil
}

// GetDumpFile returns the ingestion record for one dump file, or ErrNotFound.
func (db *DB) GetDumpFile(ctx context.Context, kind models.EntityKind, fileName string) (*models.DumpFile, error) {
	var d models.DumpFile
	var kindStr string
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, kind, file_name, record_count, error_count, ingested_at
		FROM dump_files WHERE kind = ? AND file_name = ?`,
		string(kind), fileName).
		Scan(&d.ID, &kindStr, &d.FileName, &d.RecordCount, &d.ErrorCount, &d.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dump file %s/%s: %w", kind, fileName, err)
	}
	d.Kind = models.EntityKind(kindStr)
	return &d, nil
}

// LatestDumpFile returns the most recently ingested dump for a kind,
// or ErrNotFound.
func (db *DB) LatestDumpFile(ctx context.Context, kind models.EntityKind) (*models.DumpFile, error) {
	var d models.DumpFile
	var kindStr string
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, kind, file_name, record_count, error_count, ingested_at
		FROM dump_files WHERE kind = ?
		ORDER BY ingested_at DESC LIMIT 1`, string(kind)).
		Scan(&d.ID, &kindStr, &d.FileName, &d.RecordCount, &d.ErrorCount, &d.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest dump file for %s: %w", kind, err)
	}
	d.Kind = models.EntityKind(kindStr)
	return &d, nil
}

// RecordDumpFile upserts the ingestion record for one dump file so
// repeat ingests can be skipped unless forced.
func (db *DB) RecordDumpFile(ctx context.Context, kind models.EntityKind, fileName string, records, errCount int64) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO dump_files (id, kind, file_name, record_count, error_count, ingested_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (kind, file_name) DO UPDATE SET
			record_count = excluded.record_count,
			error_count = excluded.error_count,
			ingested_at = now()`,
		uuid.New().String(), string(kind), fileName, records, errCount)
	if err != nil {
		return fmt.Errorf("failed to record dump file %s/%s: %w", kind, fileName, err)
	}
	return nil
}
