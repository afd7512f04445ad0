// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with a generous timeout for DDL.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// schemaStatements defines every table in creation order. Raw dump
// documents are stored as JSON text alongside the extracted scalar
// columns so relationships can be re-materialized without re-reading
// the dump files.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS users_id_seq`,

	`CREATE TABLE IF NOT EXISTS artists (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		real_name TEXT,
		profile TEXT,
		data_quality TEXT,
		raw_document TEXT,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS labels (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		contact_info TEXT,
		profile TEXT,
		data_quality TEXT,
		parent_label_id BIGINT,
		raw_document TEXT,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS masters (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		main_release_id BIGINT,
		year INTEGER,
		data_quality TEXT,
		raw_document TEXT,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS releases (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		master_id BIGINT,
		year INTEGER,
		country TEXT,
		status TEXT,
		data_quality TEXT,
		raw_document TEXT,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS tracks (
		release_id BIGINT NOT NULL,
		seq INTEGER NOT NULL,
		position TEXT,
		title TEXT NOT NULL,
		duration TEXT,
		PRIMARY KEY (release_id, seq)
	)`,

	`CREATE TABLE IF NOT EXISTS release_artists (
		release_id BIGINT NOT NULL,
		artist_id BIGINT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		name TEXT,
		anv TEXT,
		join_relation TEXT,
		credited_tracks TEXT,
		PRIMARY KEY (release_id, artist_id, role)
	)`,

	`CREATE TABLE IF NOT EXISTS release_labels (
		release_id BIGINT NOT NULL,
		label_id BIGINT NOT NULL,
		catalog_number TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (release_id, label_id, catalog_number)
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY DEFAULT nextval('users_id_seq'),
		username TEXT NOT NULL UNIQUE,
		remote_user_id BIGINT,
		last_sync_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS collection_folders (
		user_id BIGINT NOT NULL,
		id BIGINT NOT NULL,
		name TEXT NOT NULL,
		item_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_collection_items (
		user_id BIGINT NOT NULL,
		release_id BIGINT NOT NULL,
		instance_id BIGINT NOT NULL,
		folder_id BIGINT NOT NULL DEFAULT 0,
		rating INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		date_added TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, release_id, instance_id)
	)`,

	`CREATE TABLE IF NOT EXISTS data_provenance (
		table_name TEXT NOT NULL,
		record_id BIGINT NOT NULL,
		source TEXT NOT NULL,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (table_name, record_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sync_status (
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		sync_type TEXT NOT NULL,
		outcome TEXT NOT NULL,
		items_processed INTEGER NOT NULL DEFAULT 0,
		items_added INTEGER NOT NULL DEFAULT 0,
		items_updated INTEGER NOT NULL DEFAULT 0,
		error_detail TEXT,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS dump_files (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		file_name TEXT NOT NULL,
		record_count BIGINT NOT NULL DEFAULT 0,
		error_count BIGINT NOT NULL DEFAULT 0,
		ingested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (kind, file_name)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_releases_master ON releases (master_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tracks_release ON tracks (release_id)`,
	`CREATE INDEX IF NOT EXISTS idx_release_artists_artist ON release_artists (artist_id)`,
	`CREATE INDEX IF NOT EXISTS idx_release_labels_label ON release_labels (label_id)`,
	`CREATE INDEX IF NOT EXISTS idx_collection_items_release ON user_collection_items (release_id)`,
}

// createSchema creates all tables and indexes if they don't exist.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
