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

	"github.com/discovault/discovault/internal/models"
)

// GetOrCreateUser returns the local user for a Discogs username,
// creating the row on first use.
func (db *DB) GetOrCreateUser(ctx context.Context, username string) (*models.User, error) {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (username) VALUES (?)
		ON CONFLICT (username) DO NOTHING`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return db.GetUserByUsername(ctx, username)
}

// GetUserByUsername returns one user row, or ErrNotFound.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, username, remote_user_id, last_sync_at, created_at
		FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.RemoteUserID, &u.LastSyncAt, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return &u, nil
}

// SetUserRemoteID records the resolved Discogs account id for a user.
func (db *DB) SetUserRemoteID(ctx context.Context, userID, remoteID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET remote_user_id = ? WHERE id = ?`, remoteID, userID)
	if err != nil {
		return fmt.Errorf("failed to set remote id for user %d: %w", userID, err)
	}
	return nil
}

// TouchUserLastSync stamps the user's last successful sync time.
func (db *DB) TouchUserLastSync(ctx context.Context, userID int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_sync_at = ? WHERE id = ?`, at, userID)
	if err != nil {
		return fmt.Errorf("failed to touch last sync for user %d: %w", userID, err)
	}
	return nil
}

// UpsertCollectionFolder inserts or updates one folder row.
func UpsertCollectionFolder(ctx context.Context, q Querier, f *models.CollectionFolder) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO collection_folders (user_id, id, name, item_count, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = excluded.name,
			item_count = excluded.item_count,
			updated_at = now()`,
		f.UserID, f.ID, f.Name, f.ItemCount)
	if err != nil {
		return fmt.Errorf("failed to upsert folder %d for user %d: %w", f.ID, f.UserID, err)
	}
	return nil
}

// GetCollectionFolders returns a user's folders ordered by folder id.
func (db *DB) GetCollectionFolders(ctx context.Context, userID int64) ([]models.CollectionFolder, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, id, name, item_count, updated_at
		FROM collection_folders WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders for user %d: %w", userID, err)
	}
	defer closeWithLog(rows, "folder rows")

	var out []models.CollectionFolder
	for rows.Next() {
		var f models.CollectionFolder
		if err := rows.Scan(&f.UserID, &f.ID, &f.Name, &f.ItemCount, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertCollectionItem inserts or updates one collection instance. The
// (user, release, instance) key keeps duplicate copies of the same
// release as distinct rows while re-syncs of the same instance update
// in place.
func UpsertCollectionItem(ctx context.Context, q Querier, item *models.CollectionItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_collection_items (user_id, release_id, instance_id, folder_id, rating, notes, date_added, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, release_id, instance_id) DO UPDATE SET
			folder_id = excluded.folder_id,
			rating = excluded.rating,
			notes = COALESCE(excluded.notes, user_collection_items.notes),
			date_added = COALESCE(excluded.date_added, user_collection_items.date_added),
			updated_at = now()`,
		item.UserID, item.ReleaseID, item.InstanceID, item.FolderID, item.Rating, item.Notes, item.DateAdded)
	if err != nil {
		return fmt.Errorf("failed to upsert collection item %d/%d/%d: %w",
			item.UserID, item.ReleaseID, item.InstanceID, err)
	}
	return nil
}

// ClearUserCollection removes every collection item for a user.
func ClearUserCollection(ctx context.Context, q Querier, userID int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM user_collection_items WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear collection for user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared rows for user %d: %w", userID, err)
	}
	return n, nil
}

// GetCollectionItems returns a user's collection ordered by release
// then instance.
func (db *DB) GetCollectionItems(ctx context.Context, userID int64) ([]models.CollectionItem, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, release_id, instance_id, folder_id, rating, notes, date_added, updated_at
		FROM user_collection_items WHERE user_id = ?
		ORDER BY release_id, instance_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection for user %d: %w", userID, err)
	}
	defer closeWithLog(rows, "collection item rows")

	var out []models.CollectionItem
	for rows.Next() {
		var it models.CollectionItem
		if err := rows.Scan(&it.UserID, &it.ReleaseID, &it.InstanceID, &it.FolderID,
			&it.Rating, &it.Notes, &it.DateAdded, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// HasCollectionItems reports whether any collection rows exist at all.
// Used as a precondition for collection-scoped ingestion strategies.
func (db *DB) HasCollectionItems(ctx context.Context) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_collection_items)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check collection presence: %w", err)
	}
	return exists, nil
}

// CollectionReleaseIDs returns the distinct set of release ids present
// in any user's collection.
func (db *DB) CollectionReleaseIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT release_id FROM user_collection_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection release ids: %w", err)
	}
	defer closeWithLog(rows, "collection release id rows")

	out := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan release id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// ReleaseInCollection reports whether any user's collection holds the
// release right now.
func (db *DB) ReleaseInCollection(ctx context.Context, releaseID int64) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_collection_items WHERE release_id = ?)`,
		releaseID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check collection linkage for release %d: %w", releaseID, err)
	}
	return exists, nil
}

// MasterInCollection reports whether any collection-held release
// currently shares the given master.
func (db *DB) MasterInCollection(ctx context.Context, masterID int64) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_collection_items uci
			JOIN releases r ON r.id = uci.release_id
			WHERE r.master_id = ?)`, masterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check collection linkage for master %d: %w", masterID, err)
	}
	return exists, nil
}
