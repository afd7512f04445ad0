// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

// Package main is the Discovault command-line entry point.
//
// Discovault mirrors Discogs data locally: it ingests the monthly bulk
// XML dumps into an embedded DuckDB database, derives the relational
// join tables from the stored documents, and keeps per-user collections
// current through the rate-limited Discogs API.
//
// # Commands
//
//	discovault ingest -kind releases -file discogs_20260801_releases.xml.gz
//	discovault materialize
//	discovault sync -username collector
//	discovault serve
//	discovault status -username collector
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (DISCOVAULT_ prefix)
//   - Config file (DISCOVAULT_CONFIG, default config.yaml)
//   - Built-in defaults
//
// The Discogs API requires a personal access token for identity and
// rate-limit headroom:
//
//	export DISCOVAULT_DISCOGS_TOKEN=your-token
//	export DISCOVAULT_DISCOGS_USERNAME=collector
//	./discovault sync
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/discovault/discovault/internal/collection"
	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/database"
	"github.com/discovault/discovault/internal/discogs"
	"github.com/discovault/discovault/internal/ingest"
	"github.com/discovault/discovault/internal/logging"
	"github.com/discovault/discovault/internal/models"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var runErr error
	switch os.Args[1] {
	case "ingest":
		runErr = runIngest(ctx, cfg, os.Args[2:])
	case "materialize":
		runErr = runMaterialize(ctx, cfg, os.Args[2:])
	case "sync":
		runErr = runSync(ctx, cfg, os.Args[2:])
	case "serve":
		runErr = runServe(ctx, cfg, os.Args[2:])
	case "status":
		runErr = runStatus(ctx, cfg, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			os.Exit(2)
		}
		logging.Error().Err(runErr).Str("command", os.Args[1]).Msg("Command failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Discovault - Discogs dump ingestion and collection sync

Usage:
  discovault <command> [flags]

Commands:
  ingest       ingest a bulk dump file (artists, labels, masters, releases)
  materialize  rebuild relationship tables from stored release documents
  sync         run one collection sync against the Discogs API
  serve        run the periodic collection sync service
  status       show the latest sync status and table counts

Run 'discovault <command> -h' for command flags.
`)
}

func openDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func closeDatabase(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}

func runIngest(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	kind := fs.String("kind", "", "entity kind: artists, labels, masters, releases")
	file := fs.String("file", "", "dump file path, or - for stdin")
	force := fs.Bool("force", false, "re-ingest a file that was ingested before")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kind == "" || *file == "" {
		fs.Usage()
		return errors.New("ingest requires -kind and -file")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	src := os.Stdin
	opts := ingest.Options{Kind: models.EntityKind(*kind), Force: *force}
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("failed to open dump file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logging.Warn().Err(err).Msg("Error closing dump file")
			}
		}()
		src = f
		opts.FileName = filepath.Base(*file)
	}

	stats, err := ingest.NewIngestor(db, &cfg.Ingest).Ingest(ctx, src, opts)
	if err != nil {
		return err
	}
	fmt.Printf("ingested %d records (%d skipped, %d errors) in %s\n",
		stats.Processed, stats.Skipped, stats.Errors, stats.Duration.Round(time.Millisecond))
	return nil
}

func runMaterialize(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("materialize", flag.ContinueOnError)
	idList := fs.String("ids", "", "comma-separated release ids (default: all stored documents)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var ids []int64
	if *idList != "" {
		for _, part := range strings.Split(*idList, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid release id %q", part)
			}
			ids = append(ids, id)
		}
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	stats, err := ingest.NewIngestor(db, &cfg.Ingest).MaterializeRelationships(ctx, ingest.MaterializeOptions{ReleaseIDs: ids})
	if err != nil {
		return err
	}
	fmt.Printf("materialized %d releases (%d artists, %d labels, %d tracks, %d skipped) in %s\n",
		stats.Releases, stats.Artists, stats.Labels, stats.Tracks, stats.Skipped,
		stats.Duration.Round(time.Millisecond))
	return nil
}

func runSync(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	username := fs.String("username", "", "Discogs username (default: configured username)")
	force := fs.Bool("force", false, "clear the stored collection before syncing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	client := discogs.NewCircuitBreakerClient(&cfg.Discogs)
	syncer := collection.NewSyncer(db, client, &cfg.Discogs)

	stats, err := syncer.SyncCollection(ctx, collection.SyncOptions{
		Username: *username,
		Force:    *force,
	})
	if err != nil {
		return err
	}
	fmt.Printf("sync %s: %d processed (%d added, %d updated) in %s\n",
		stats.Outcome, stats.Processed, stats.Added, stats.Updated,
		stats.Duration.Round(time.Millisecond))
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", ":9090", "Prometheus metrics listen address (empty disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !cfg.Sync.Enabled {
		return errors.New("sync.enabled is false; nothing to serve")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	if *metricsAddr != "" {
		go serveMetrics(ctx, *metricsAddr)
	}

	client := discogs.NewCircuitBreakerClient(&cfg.Discogs)
	syncer := collection.NewSyncer(db, client, &cfg.Discogs)
	svc := collection.NewService(syncer, &cfg.Sync)

	sup := collection.NewSupervisor(svc)
	err = sup.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logging.Info().Msg("Shutdown complete")
		return nil
	}
	return err
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}()

	logging.Info().Str("addr", addr).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("Metrics server failed")
	}
}

func runStatus(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	username := fs.String("username", "", "Discogs username (default: configured username)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	kinds, err := ingest.NewIngestor(db, &cfg.Ingest).IngestionStatus(ctx)
	if err != nil {
		return err
	}
	for _, ks := range kinds {
		if ks.LastDump != nil {
			fmt.Printf("%-22s %d (last dump %s, %d records)\n",
				ks.Kind, ks.Rows, ks.LastDump.FileName, ks.LastDump.RecordCount)
		} else {
			fmt.Printf("%-22s %d\n", ks.Kind, ks.Rows)
		}
	}
	for _, table := range []string{"tracks", "release_artists", "release_labels", "user_collection_items"} {
		n, err := db.CountRows(ctx, table)
		if err != nil {
			return err
		}
		fmt.Printf("%-22s %d\n", table, n)
	}

	name := *username
	if name == "" {
		name = cfg.Discogs.Username
	}
	if name == "" {
		return nil
	}

	user, err := db.GetUserByUsername(ctx, name)
	if errors.Is(err, database.ErrNotFound) {
		fmt.Printf("\nuser %s: never synced\n", name)
		return nil
	}
	if err != nil {
		return err
	}

	status, err := db.LatestSyncStatus(ctx, user.ID)
	if errors.Is(err, database.ErrNotFound) {
		fmt.Printf("\nuser %s: never synced\n", name)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nuser %s: last sync %s at %s (%d processed, %d added, %d updated)\n",
		name, status.Outcome, status.StartedAt.Format(time.RFC3339),
		status.ItemsProcessed, status.ItemsAdded, status.ItemsUpdated)
	if status.ErrorDetail != nil {
		fmt.Printf("  error: %s\n", *status.ErrorDetail)
	}
	return nil
}
