// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/discovault/discovault/internal/models"
)

// ReleaseDocumentRow pairs a release id with its stored raw document.
type ReleaseDocumentRow struct {
	ID  int64
	Raw []byte
}

// ListReleaseDocuments returns up to limit releases with a stored raw
// document, keyset-paginated by id. Pass afterID 0 to start from the
// beginning.
func (db *DB) ListReleaseDocuments(ctx context.Context, afterID int64, limit int) ([]ReleaseDocumentRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, raw_document FROM releases
		WHERE id > ? AND raw_document IS NOT NULL
		ORDER BY id
		LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list release documents: %w", err)
	}
	defer closeWithLog(rows, "release document rows")

	var out []ReleaseDocumentRow
	for rows.Next() {
		var r ReleaseDocumentRow
		var raw string
		if err := rows.Scan(&r.ID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan release document: %w", err)
		}
		r.Raw = []byte(raw)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetReleaseDocuments returns the stored raw documents for the given
// release ids. Releases without a document are silently omitted.
func (db *DB) GetReleaseDocuments(ctx context.Context, ids []int64) ([]ReleaseDocumentRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, raw_document FROM releases
		WHERE id IN (`+placeholders+`) AND raw_document IS NOT NULL
		ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get release documents: %w", err)
	}
	defer closeWithLog(rows, "release document rows")

	var out []ReleaseDocumentRow
	for rows.Next() {
		var r ReleaseDocumentRow
		var raw string
		if err := rows.Scan(&r.ID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan release document: %w", err)
		}
		r.Raw = []byte(raw)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceReleaseRelationships clears and rewrites the derived join
// tables for one release. Running it twice with the same document
// leaves identical state. Track insertion order follows the slice
// order so the tracklist sequence survives verbatim.
func ReplaceReleaseRelationships(ctx context.Context, q Querier, releaseID int64,
	artists []models.ReleaseArtist, labels []models.ReleaseLabel, tracks []models.Track) error {

	for _, table := range []string{"release_artists", "release_labels", "tracks"} {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE release_id = ?", releaseID); err != nil {
			return fmt.Errorf("failed to clear %s for release %d: %w", table, releaseID, err)
		}
	}

	for _, a := range artists {
		_, err := q.ExecContext(ctx, `
			INSERT INTO release_artists (release_id, artist_id, role, name, anv, join_relation, credited_tracks)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			releaseID, a.ArtistID, a.Role, a.Name, a.ANV, a.Join, a.Tracks)
		if err != nil {
			return fmt.Errorf("failed to insert release_artist %d/%d: %w", releaseID, a.ArtistID, err)
		}
	}

	for _, l := range labels {
		_, err := q.ExecContext(ctx, `
			INSERT INTO release_labels (release_id, label_id, catalog_number)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING`,
			releaseID, l.LabelID, l.CatalogNumber)
		if err != nil {
			return fmt.Errorf("failed to insert release_label %d/%d: %w", releaseID, l.LabelID, err)
		}
	}

	for _, t := range tracks {
		_, err := q.ExecContext(ctx, `
			INSERT INTO tracks (release_id, seq, position, title, duration)
			VALUES (?, ?, ?, ?, ?)`,
			releaseID, t.Seq, t.Position, t.Title, t.Duration)
		if err != nil {
			return fmt.Errorf("failed to insert track %d/%d: %w", releaseID, t.Seq, err)
		}
	}

	return nil
}

// GetTracks returns the materialized tracklist in sequence order.
func (db *DB) GetTracks(ctx context.Context, releaseID int64) ([]models.Track, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT release_id, seq, position, title, duration FROM tracks
		WHERE release_id = ? ORDER BY seq`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for release %d: %w", releaseID, err)
	}
	defer closeWithLog(rows, "track rows")

	var out []models.Track
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ReleaseID, &t.Seq, &t.Position, &t.Title, &t.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetReleaseArtists returns the materialized artist credits for a release.
func (db *DB) GetReleaseArtists(ctx context.Context, releaseID int64) ([]models.ReleaseArtist, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT release_id, artist_id, role, name, anv, join_relation, credited_tracks
		FROM release_artists WHERE release_id = ? ORDER BY artist_id, role`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query release_artists for release %d: %w", releaseID, err)
	}
	defer closeWithLog(rows, "release_artist rows")

	var out []models.ReleaseArtist
	for rows.Next() {
		var a models.ReleaseArtist
		if err := rows.Scan(&a.ReleaseID, &a.ArtistID, &a.Role, &a.Name, &a.ANV, &a.Join, &a.Tracks); err != nil {
			return nil, fmt.Errorf("failed to scan release_artist: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetReleaseLabels returns the materialized label credits for a release.
func (db *DB) GetReleaseLabels(ctx context.Context, releaseID int64) ([]models.ReleaseLabel, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT release_id, label_id, catalog_number
		FROM release_labels WHERE release_id = ? ORDER BY label_id, catalog_number`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query release_labels for release %d: %w", releaseID, err)
	}
	defer closeWithLog(rows, "release_label rows")

	var out []models.ReleaseLabel
	for rows.Next() {
		var l models.ReleaseLabel
		if err := rows.Scan(&l.ReleaseID, &l.LabelID, &l.CatalogNumber); err != nil {
			return nil, fmt.Errorf("failed to scan release_label: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
