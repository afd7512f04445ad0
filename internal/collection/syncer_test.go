// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package collection

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/database"
	"github.com/discovault/discovault/internal/discogs"
	"github.com/discovault/discovault/internal/models"
)

// testDBSemaphore limits concurrent in-memory databases; DuckDB's CGO
// layer misbehaves under heavy parallel open/close churn.
var testDBSemaphore = make(chan struct{}, 4)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

// mockClient is a scripted ClientInterface for syncer tests.
type mockClient struct {
	identity    *discogs.Identity
	identityErr error
	folders     *discogs.FoldersResponse
	foldersErr  error
	pages       []*discogs.CollectionPageResponse
	pageErrs    map[int]error
	pageCalls   int
}

func (m *mockClient) Identity(_ context.Context) (*discogs.Identity, error) {
	if m.identityErr != nil {
		return nil, m.identityErr
	}
	if m.identity != nil {
		return m.identity, nil
	}
	return &discogs.Identity{ID: 42, Username: "collector"}, nil
}

func (m *mockClient) CollectionFolders(_ context.Context, _ string) (*discogs.FoldersResponse, error) {
	if m.foldersErr != nil {
		return nil, m.foldersErr
	}
	if m.folders != nil {
		return m.folders, nil
	}
	return &discogs.FoldersResponse{Folders: []discogs.Folder{
		{ID: 0, Name: "All", Count: 0},
	}}, nil
}

func (m *mockClient) CollectionPage(_ context.Context, _ string, _ int64, page, _ int) (*discogs.CollectionPageResponse, error) {
	m.pageCalls++
	if err, ok := m.pageErrs[page]; ok {
		return nil, err
	}
	if page < 1 || page > len(m.pages) {
		return nil, fmt.Errorf("unscripted page %d", page)
	}
	return m.pages[page-1], nil
}

func collectionPage(page, pages int, items ...discogs.CollectionItem) *discogs.CollectionPageResponse {
	return &discogs.CollectionPageResponse{
		Pagination: discogs.Pagination{Page: page, Pages: pages, Items: len(items)},
		Releases:   items,
	}
}

func collectionItem(releaseID, instanceID int64, title string) discogs.CollectionItem {
	return discogs.CollectionItem{
		ID:               releaseID,
		InstanceID:       instanceID,
		FolderID:         1,
		Rating:           4,
		DateAdded:        "2026-07-15T10:30:00-07:00",
		BasicInformation: discogs.BasicInformation{ID: releaseID, Title: title},
	}
}

func testSyncer(db *database.DB, client discogs.ClientInterface) *Syncer {
	return NewSyncer(db, client, &config.DiscogsConfig{
		Username: "collector",
		PageSize: 100,
	})
}

func TestSyncCollectionSuccess(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	client := &mockClient{
		folders: &discogs.FoldersResponse{Folders: []discogs.Folder{
			{ID: 0, Name: "All", Count: 3},
			{ID: 1, Name: "Uncategorized", Count: 3},
		}},
		pages: []*discogs.CollectionPageResponse{
			collectionPage(1, 2, collectionItem(100, 1, "First"), collectionItem(200, 2, "Second")),
			collectionPage(2, 2, collectionItem(300, 3, "Third")),
		},
	}

	stats, err := testSyncer(db, client).SyncCollection(ctx, SyncOptions{})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if stats.Outcome != models.SyncOutcomeSuccess {
		t.Errorf("outcome = %q, want success", stats.Outcome)
	}
	if stats.Processed != 3 || stats.Added != 3 || stats.Updated != 0 {
		t.Errorf("stats = %d/%d/%d, want 3/3/0", stats.Processed, stats.Added, stats.Updated)
	}

	user, err := db.GetUserByUsername(ctx, "collector")
	if err != nil {
		t.Fatalf("user lookup failed: %v", err)
	}
	if user.RemoteUserID == nil || *user.RemoteUserID != 42 {
		t.Errorf("remote user id = %v, want 42", user.RemoteUserID)
	}
	if user.LastSyncAt == nil {
		t.Error("last sync not stamped")
	}

	items, err := db.GetCollectionItems(ctx, user.ID)
	if err != nil {
		t.Fatalf("items query failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].DateAdded == nil {
		t.Error("date_added not parsed")
	}

	// Unknown releases get stub rows with API provenance.
	stub, err := db.GetRelease(ctx, 100)
	if err != nil {
		t.Fatalf("stub release missing: %v", err)
	}
	if stub.Title != "First" {
		t.Errorf("stub title = %q, want First", stub.Title)
	}
	source, err := db.GetProvenance(ctx, "releases", 100)
	if err != nil {
		t.Fatalf("provenance lookup failed: %v", err)
	}
	if source != models.SourceAPI {
		t.Errorf("provenance = %q, want api", source)
	}

	folders, err := db.GetCollectionFolders(ctx, user.ID)
	if err != nil {
		t.Fatalf("folders query failed: %v", err)
	}
	if len(folders) != 2 {
		t.Errorf("got %d folders, want 2", len(folders))
	}

	status, err := db.GetSyncStatus(ctx, stats.StatusID)
	if err != nil {
		t.Fatalf("status lookup failed: %v", err)
	}
	if status.Outcome != models.SyncOutcomeSuccess || status.ItemsProcessed != 3 {
		t.Errorf("status = %q/%d, want success/3", status.Outcome, status.ItemsProcessed)
	}
	if status.CompletedAt == nil {
		t.Error("status not completed")
	}
}

func TestSyncCollectionSecondRunUpdates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	client := &mockClient{pages: []*discogs.CollectionPageResponse{
		collectionPage(1, 1, collectionItem(100, 1, "First"), collectionItem(200, 2, "Second")),
	}}
	syncer := testSyncer(db, client)

	if _, err := syncer.SyncCollection(ctx, SyncOptions{}); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	stats, err := syncer.SyncCollection(ctx, SyncOptions{})
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if stats.Added != 0 || stats.Updated != 2 {
		t.Errorf("added/updated = %d/%d, want 0/2", stats.Added, stats.Updated)
	}
}

func TestSyncCollectionPartialOnPageFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	client := &mockClient{
		pages: []*discogs.CollectionPageResponse{
			collectionPage(1, 2, collectionItem(100, 1, "First")),
		},
		pageErrs: map[int]error{2: errors.New("boom")},
	}

	stats, err := testSyncer(db, client).SyncCollection(ctx, SyncOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if stats.Outcome != models.SyncOutcomePartial {
		t.Errorf("outcome = %q, want partial", stats.Outcome)
	}
	if stats.Processed != 1 {
		t.Errorf("Processed = %d, want 1", stats.Processed)
	}

	// The committed first page survives the abort.
	user, err := db.GetUserByUsername(ctx, "collector")
	if err != nil {
		t.Fatalf("user lookup failed: %v", err)
	}
	items, err := db.GetCollectionItems(ctx, user.ID)
	if err != nil {
		t.Fatalf("items query failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("got %d items, want 1", len(items))
	}

	status, err := db.GetSyncStatus(ctx, stats.StatusID)
	if err != nil {
		t.Fatalf("status lookup failed: %v", err)
	}
	if status.ErrorDetail == nil || *status.ErrorDetail == "" {
		t.Error("error detail not recorded")
	}
}

func TestSyncCollectionFailedBeforeAnyItem(t *testing.T) {
	db := setupTestDB(t)

	client := &mockClient{foldersErr: errors.New("api down")}
	stats, err := testSyncer(db, client).SyncCollection(context.Background(), SyncOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if stats.Outcome != models.SyncOutcomeFailed {
		t.Errorf("outcome = %q, want failed", stats.Outcome)
	}
}

func TestSyncCollectionIdentityFailure(t *testing.T) {
	db := setupTestDB(t)

	client := &mockClient{identityErr: discogs.ErrAuth}
	_, err := testSyncer(db, client).SyncCollection(context.Background(), SyncOptions{})
	if !errors.Is(err, discogs.ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
}

func TestSyncCollectionForceRemovesStaleItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	client := &mockClient{pages: []*discogs.CollectionPageResponse{
		collectionPage(1, 1, collectionItem(100, 1, "First"), collectionItem(200, 2, "Second")),
	}}
	syncer := testSyncer(db, client)
	if _, err := syncer.SyncCollection(ctx, SyncOptions{}); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	// Release 200 was removed remotely.
	client.pages = []*discogs.CollectionPageResponse{
		collectionPage(1, 1, collectionItem(100, 1, "First")),
	}
	stats, err := syncer.SyncCollection(ctx, SyncOptions{Force: true})
	if err != nil {
		t.Fatalf("forced sync failed: %v", err)
	}
	if stats.Cleared != 2 {
		t.Errorf("Cleared = %d, want 2", stats.Cleared)
	}

	user, err := db.GetUserByUsername(ctx, "collector")
	if err != nil {
		t.Fatalf("user lookup failed: %v", err)
	}
	items, err := db.GetCollectionItems(ctx, user.ID)
	if err != nil {
		t.Fatalf("items query failed: %v", err)
	}
	if len(items) != 1 || items[0].ReleaseID != 100 {
		t.Errorf("items = %+v, want only release 100", items)
	}
}

func TestSyncCollectionNoUsername(t *testing.T) {
	db := setupTestDB(t)
	syncer := NewSyncer(db, &mockClient{}, &config.DiscogsConfig{PageSize: 100})
	if _, err := syncer.SyncCollection(context.Background(), SyncOptions{}); err == nil {
		t.Error("expected error without username")
	}
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		processed int
		want      string
	}{
		{"clean run", nil, 10, models.SyncOutcomeSuccess},
		{"error after progress", errors.New("boom"), 5, models.SyncOutcomePartial},
		{"error before progress", errors.New("boom"), 0, models.SyncOutcomeFailed},
		{"canceled early", context.Canceled, 0, models.SyncOutcomePartial},
	}
	for _, tt := range tests {
		if got := outcomeFor(tt.err, tt.processed); got != tt.want {
			t.Errorf("%s: outcomeFor = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParseDateAdded(t *testing.T) {
	if got := parseDateAdded("2026-07-15T10:30:00-07:00"); got == nil || !got.Equal(time.Date(2026, 7, 15, 17, 30, 0, 0, time.UTC)) {
		t.Errorf("parseDateAdded = %v", got)
	}
	if got := parseDateAdded("yesterday"); got != nil {
		t.Errorf("parseDateAdded(garbage) = %v, want nil", got)
	}
	if got := parseDateAdded(""); got != nil {
		t.Errorf("parseDateAdded(empty) = %v, want nil", got)
	}
}
