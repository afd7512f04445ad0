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

	"github.com/discovault/discovault/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// Upserts preserve previously-set scalar columns when the incoming
// value is absent (COALESCE against the existing row) but always
// replace the raw document wholesale, so a re-ingest of an older dump
// cannot blank out fields a newer source filled in.

// UpsertArtist inserts or updates one artist row.
func UpsertArtist(ctx context.Context, q Querier, a *models.Artist) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO artists (id, name, real_name, profile, data_quality, raw_document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			real_name = COALESCE(excluded.real_name, artists.real_name),
			profile = COALESCE(excluded.profile, artists.profile),
			data_quality = COALESCE(excluded.data_quality, artists.data_quality),
			raw_document = excluded.raw_document,
			updated_at = now()`,
		a.ID, a.Name, a.RealName, a.Profile, a.DataQuality, rawDoc(a.RawDocument))
	if err != nil {
		return fmt.Errorf("failed to upsert artist %d: %w", a.ID, err)
	}
	return nil
}

// UpsertLabel inserts or updates one label row.
func UpsertLabel(ctx context.Context, q Querier, l *models.Label) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO labels (id, name, contact_info, profile, data_quality, parent_label_id, raw_document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			contact_info = COALESCE(excluded.contact_info, labels.contact_info),
			profile = COALESCE(excluded.profile, labels.profile),
			data_quality = COALESCE(excluded.data_quality, labels.data_quality),
			parent_label_id = COALESCE(excluded.parent_label_id, labels.parent_label_id),
			raw_document = excluded.raw_document,
			updated_at = now()`,
		l.ID, l.Name, l.ContactInfo, l.Profile, l.DataQuality, l.ParentLabelID, rawDoc(l.RawDocument))
	if err != nil {
		return fmt.Errorf("failed to upsert label %d: %w", l.ID, err)
	}
	return nil
}

// UpsertMaster inserts or updates one master row.
func UpsertMaster(ctx context.Context, q Querier, m *models.Master) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO masters (id, title, main_release_id, year, data_quality, raw_document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			main_release_id = COALESCE(excluded.main_release_id, masters.main_release_id),
			year = COALESCE(excluded.year, masters.year),
			data_quality = COALESCE(excluded.data_quality, masters.data_quality),
			raw_document = excluded.raw_document,
			updated_at = now()`,
		m.ID, m.Title, m.MainReleaseID, m.Year, m.DataQuality, rawDoc(m.RawDocument))
	if err != nil {
		return fmt.Errorf("failed to upsert master %d: %w", m.ID, err)
	}
	return nil
}

// UpsertRelease inserts or updates one release row.
func UpsertRelease(ctx context.Context, q Querier, r *models.Release) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO releases (id, title, master_id, year, country, status, data_quality, raw_document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			master_id = COALESCE(excluded.master_id, releases.master_id),
			year = COALESCE(excluded.year, releases.year),
			country = COALESCE(excluded.country, releases.country),
			status = COALESCE(excluded.status, releases.status),
			data_quality = COALESCE(excluded.data_quality, releases.data_quality),
			raw_document = excluded.raw_document,
			updated_at = now()`,
		r.ID, r.Title, r.MasterID, r.Year, r.Country, r.Status, r.DataQuality, rawDoc(r.RawDocument))
	if err != nil {
		return fmt.Errorf("failed to upsert release %d: %w", r.ID, err)
	}
	return nil
}

// EnsureStubRelease inserts a placeholder release row when none exists,
// recording the given provenance only for the newly created stub.
// Existing rows and their provenance are left untouched.
func EnsureStubRelease(ctx context.Context, q Querier, id int64, title, source string) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO releases (id, title, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO NOTHING`,
		id, title)
	if err != nil {
		return fmt.Errorf("failed to create stub release %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil || affected == 0 {
		return nil
	}
	return RecordProvenance(ctx, q, "releases", id, source)
}

// RecordProvenance upserts the data_provenance row for one stored record.
func RecordProvenance(ctx context.Context, q Querier, table string, recordID int64, source string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO data_provenance (table_name, record_id, source, recorded_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (table_name, record_id) DO UPDATE SET
			source = excluded.source,
			recorded_at = now()`,
		table, recordID, source)
	if err != nil {
		return fmt.Errorf("failed to record provenance for %s/%d: %w", table, recordID, err)
	}
	return nil
}

// GetProvenance returns the recorded source for one row, or ErrNotFound.
func (db *DB) GetProvenance(ctx context.Context, table string, recordID int64) (string, error) {
	var source string
	err := db.conn.QueryRowContext(ctx,
		`SELECT source FROM data_provenance WHERE table_name = ? AND record_id = ?`,
		table, recordID).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get provenance for %s/%d: %w", table, recordID, err)
	}
	return source, nil
}

// GetArtist returns one artist row, or ErrNotFound.
func (db *DB) GetArtist(ctx context.Context, id int64) (*models.Artist, error) {
	var a models.Artist
	var raw sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, real_name, profile, data_quality, raw_document, updated_at FROM artists WHERE id = ?`,
		id).Scan(&a.ID, &a.Name, &a.RealName, &a.Profile, &a.DataQuality, &raw, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist %d: %w", id, err)
	}
	if raw.Valid {
		a.RawDocument = []byte(raw.String)
	}
	return &a, nil
}

// GetLabel returns one label row, or ErrNotFound.
func (db *DB) GetLabel(ctx context.Context, id int64) (*models.Label, error) {
	var l models.Label
	var raw sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, contact_info, profile, data_quality, parent_label_id, raw_document, updated_at FROM labels WHERE id = ?`,
		id).Scan(&l.ID, &l.Name, &l.ContactInfo, &l.Profile, &l.DataQuality, &l.ParentLabelID, &raw, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get label %d: %w", id, err)
	}
	if raw.Valid {
		l.RawDocument = []byte(raw.String)
	}
	return &l, nil
}

// GetMaster returns one master row, or ErrNotFound.
func (db *DB) GetMaster(ctx context.Context, id int64) (*models.Master, error) {
	var m models.Master
	var raw sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, main_release_id, year, data_quality, raw_document, updated_at FROM masters WHERE id = ?`,
		id).Scan(&m.ID, &m.Title, &m.MainReleaseID, &m.Year, &m.DataQuality, &raw, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get master %d: %w", id, err)
	}
	if raw.Valid {
		m.RawDocument = []byte(raw.String)
	}
	return &m, nil
}

// GetRelease returns one release row, or ErrNotFound.
func (db *DB) GetRelease(ctx context.Context, id int64) (*models.Release, error) {
	var r models.Release
	var raw sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, master_id, year, country, status, data_quality, raw_document, updated_at FROM releases WHERE id = ?`,
		id).Scan(&r.ID, &r.Title, &r.MasterID, &r.Year, &r.Country, &r.Status, &r.DataQuality, &raw, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release %d: %w", id, err)
	}
	if raw.Valid {
		r.RawDocument = []byte(raw.String)
	}
	return &r, nil
}

// CountRows returns the row count of one table. The table name is
// checked against the known schema to keep it out of injection reach.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	if !knownTables[table] {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

var knownTables = map[string]bool{
	"artists":               true,
	"labels":                true,
	"masters":               true,
	"releases":              true,
	"tracks":                true,
	"release_artists":       true,
	"release_labels":        true,
	"users":                 true,
	"collection_folders":    true,
	"user_collection_items": true,
	"data_provenance":       true,
	"sync_status":           true,
	"dump_files":            true,
}

// rawDoc converts a document payload to a nullable TEXT argument.
func rawDoc(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
