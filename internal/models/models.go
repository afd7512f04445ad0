// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

// Package models defines the persisted entity types shared across the
// ingestion, materialization, and collection sync layers.
package models

import "time"

// EntityKind identifies one of the four bulk-dump record families.
type EntityKind string

const (
	KindArtists  EntityKind = "artists"
	KindLabels   EntityKind = "labels"
	KindMasters  EntityKind = "masters"
	KindReleases EntityKind = "releases"
)

// AllKinds lists the entity kinds in dump-release order.
var AllKinds = []EntityKind{KindArtists, KindLabels, KindMasters, KindReleases}

// Valid reports whether k names a known entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindArtists, KindLabels, KindMasters, KindReleases:
		return true
	}
	return false
}

// Table returns the storage table backing the kind.
func (k EntityKind) Table() string {
	return string(k)
}

// Provenance values recorded per stored row in data_provenance.
const (
	SourceDump   = "dump"
	SourceAPI    = "api"
	SourceManual = "manual"
)

// Sync outcome values for sync_status rows.
const (
	SyncOutcomeSuccess = "success"
	SyncOutcomePartial = "partial"
	SyncOutcomeFailed  = "failed"
)

// Artist is a stored artist row. Optional scalar fields are pointers so
// an upsert can distinguish absent from empty.
type Artist struct {
	ID          int64
	Name        string
	RealName    *string
	Profile     *string
	DataQuality *string
	RawDocument []byte
	UpdatedAt   time.Time
}

// Label is a stored label row.
type Label struct {
	ID            int64
	Name          string
	ContactInfo   *string
	Profile       *string
	DataQuality   *string
	ParentLabelID *int64
	RawDocument   []byte
	UpdatedAt     time.Time
}

// Master is a stored master row.
type Master struct {
	ID            int64
	Title         string
	MainReleaseID *int64
	Year          *int
	DataQuality   *string
	RawDocument   []byte
	UpdatedAt     time.Time
}

// Release is a stored release row.
type Release struct {
	ID          int64
	Title       string
	MasterID    *int64
	Year        *int
	Country     *string
	Status      *string
	DataQuality *string
	RawDocument []byte
	UpdatedAt   time.Time
}

// Track is one materialized tracklist row. Seq preserves document
// order; Position is the free-form label from the source tracklist.
type Track struct {
	ReleaseID int64
	Seq       int
	Position  string
	Title     string
	Duration  string
}

// ReleaseArtist is one materialized release-to-artist credit.
type ReleaseArtist struct {
	ReleaseID int64
	ArtistID  int64
	Role      string
	Name      string
	ANV       string
	Join      string
	Tracks    string
}

// ReleaseLabel is one materialized release-to-label credit.
type ReleaseLabel struct {
	ReleaseID     int64
	LabelID       int64
	CatalogNumber string
}

// User is a local account bound to a remote Discogs identity.
type User struct {
	ID           int64
	Username     string
	RemoteUserID *int64
	LastSyncAt   *time.Time
	CreatedAt    time.Time
}

// CollectionItem is one instance of a release in a user's collection.
// The same release can appear multiple times under distinct InstanceIDs.
type CollectionItem struct {
	UserID     int64
	ReleaseID  int64
	InstanceID int64
	FolderID   int64
	Rating     int
	Notes      *string
	DateAdded  *time.Time
	UpdatedAt  time.Time
}

// CollectionFolder mirrors a remote collection folder.
type CollectionFolder struct {
	ID        int64
	UserID    int64
	Name      string
	ItemCount int
	UpdatedAt time.Time
}

// SyncStatus is one row of the sync audit log.
type SyncStatus struct {
	ID             string
	UserID         int64
	SyncType       string
	Outcome        string
	ItemsProcessed int
	ItemsAdded     int
	ItemsUpdated   int
	ErrorDetail    *string
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// DumpFile records one ingested bulk dump for idempotency checks.
type DumpFile struct {
	ID          string
	Kind        EntityKind
	FileName    string
	RecordCount int64
	ErrorCount  int64
	IngestedAt  time.Time
}
