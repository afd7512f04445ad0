// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/database"
	"github.com/discovault/discovault/internal/models"
)

// seedCollection creates a user owning release 100 (master 55) and
// returns the user id.
func seedCollection(t *testing.T, db *database.DB) int64 {
	t.Helper()
	ctx := context.Background()

	user, err := db.GetOrCreateUser(ctx, "collector")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	masterID := int64(55)
	if err := database.UpsertRelease(ctx, db.Conn(), &models.Release{
		ID:       100,
		Title:    "Owned Release",
		MasterID: &masterID,
	}); err != nil {
		t.Fatalf("failed to seed release: %v", err)
	}
	if err := database.UpsertCollectionItem(ctx, db.Conn(), &models.CollectionItem{
		UserID:     user.ID,
		ReleaseID:  100,
		InstanceID: 1,
		FolderID:   1,
	}); err != nil {
		t.Fatalf("failed to seed collection item: %v", err)
	}
	return user.ID
}

func releaseDoc(id, masterID int64) *models.ReleaseDocument {
	doc := &models.ReleaseDocument{ID: id, Title: "x"}
	if masterID > 0 {
		doc.Master = &models.MasterRef{Raw: strconv.FormatInt(masterID, 10)}
	}
	return doc
}

func admit(t *testing.T, p *ReleasePolicy, doc *models.ReleaseDocument) bool {
	t.Helper()
	ok, err := p.Admit(context.Background(), doc)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	return ok
}

func TestReleasePolicyAll(t *testing.T) {
	db := setupTestDB(t)
	p, err := NewReleasePolicy(context.Background(), db, config.StrategyAll)
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}
	if !admit(t, p, releaseDoc(1, 0)) {
		t.Error("strategy all rejected a release")
	}
}

func TestReleasePolicyNone(t *testing.T) {
	db := setupTestDB(t)
	p, err := NewReleasePolicy(context.Background(), db, config.StrategyNone)
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}
	if admit(t, p, releaseDoc(1, 0)) {
		t.Error("strategy none admitted a release")
	}
}

func TestReleasePolicyEmptyCollection(t *testing.T) {
	db := setupTestDB(t)
	for _, strategy := range []config.ReleaseStrategy{config.StrategyCollection, config.StrategyCollectionMasters} {
		if _, err := NewReleasePolicy(context.Background(), db, strategy); !errors.Is(err, ErrEmptyCollection) {
			t.Errorf("strategy %s: err = %v, want ErrEmptyCollection", strategy, err)
		}
	}
}

func TestReleasePolicyCollection(t *testing.T) {
	db := setupTestDB(t)
	seedCollection(t, db)

	p, err := NewReleasePolicy(context.Background(), db, config.StrategyCollection)
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}

	if !admit(t, p, releaseDoc(100, 0)) {
		t.Error("collection release rejected")
	}
	if admit(t, p, releaseDoc(101, 55)) {
		t.Error("sibling pressing admitted under plain collection strategy")
	}
}

func TestReleasePolicyCollectionMasters(t *testing.T) {
	db := setupTestDB(t)
	seedCollection(t, db)

	p, err := NewReleasePolicy(context.Background(), db, config.StrategyCollectionMasters)
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}

	if !admit(t, p, releaseDoc(100, 0)) {
		t.Error("collection release rejected")
	}
	if !admit(t, p, releaseDoc(101, 55)) {
		t.Error("sibling pressing sharing the master rejected")
	}
	if admit(t, p, releaseDoc(102, 99)) {
		t.Error("release with unrelated master admitted")
	}
	if admit(t, p, releaseDoc(103, 0)) {
		t.Error("masterless foreign release admitted")
	}
}

func TestReleasePolicyMastersSeesLiveLinkage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := seedCollection(t, db)

	p, err := NewReleasePolicy(ctx, db, config.StrategyCollectionMasters)
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}

	if admit(t, p, releaseDoc(500, 77)) {
		t.Fatal("release admitted before its master entered the collection")
	}

	// A collection sync landing mid-ingestion must be visible to
	// subsequent admission decisions.
	masterID := int64(77)
	if err := database.UpsertRelease(ctx, db.Conn(), &models.Release{
		ID:       501,
		Title:    "Synced Mid-Run",
		MasterID: &masterID,
	}); err != nil {
		t.Fatalf("failed to seed release: %v", err)
	}
	if err := database.UpsertCollectionItem(ctx, db.Conn(), &models.CollectionItem{
		UserID:     userID,
		ReleaseID:  501,
		InstanceID: 2,
		FolderID:   1,
	}); err != nil {
		t.Fatalf("failed to seed collection item: %v", err)
	}

	if !admit(t, p, releaseDoc(500, 77)) {
		t.Error("release rejected after its master entered the collection")
	}
}

func TestReleasePolicyUnknownStrategy(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewReleasePolicy(context.Background(), db, "favorites"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestIngestReleasesHonorsPolicy(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedCollection(t, db)

	cfg := testIngestConfig()
	cfg.ReleaseStrategy = config.StrategyCollection
	ing := NewIngestor(db, cfg)

	src := releasesXML(goodRelease(100, 55), goodRelease(200, 0), goodRelease(300, 0))
	stats, err := ing.Ingest(ctx, strings.NewReader(src), Options{Kind: models.KindReleases})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if stats.Processed != 1 {
		t.Errorf("Processed = %d, want 1", stats.Processed)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}

	if _, err := db.GetRelease(ctx, 200); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("rejected release stored, err = %v", err)
	}
}
