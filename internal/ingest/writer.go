// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

// Package ingest turns dump record streams into committed database
// state: batched transactional writes with an error-rate ceiling, the
// release admission policy, and the relationship materializer.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/database"
	"github.com/discovault/discovault/internal/dump"
	"github.com/discovault/discovault/internal/logging"
	"github.com/discovault/discovault/internal/metrics"
	"github.com/discovault/discovault/internal/models"
)

// minAttemptsForErrorRate delays the error-rate ceiling until enough
// records have been seen that the ratio is meaningful. A dump whose
// first record is broken would otherwise abort at 100%.
const minAttemptsForErrorRate = 50

var (
	// ErrErrorRateExceeded aborts an ingestion whose cumulative error
	// rate crossed the configured ceiling. Batches committed before
	// the abort remain committed.
	ErrErrorRateExceeded = errors.New("ingestion error rate exceeded ceiling")

	// ErrAlreadyIngested reports that this dump file was ingested
	// before and force was not set.
	ErrAlreadyIngested = errors.New("dump file already ingested")
)

// Options control one ingestion run.
type Options struct {
	Kind models.EntityKind

	// FileName enables the dump_files idempotency check and record.
	// Empty skips the bookkeeping (streaming from stdin, tests).
	FileName string

	// Force re-ingests a file that dump_files already lists.
	Force bool

	// Progress, when set, receives a stats snapshot every
	// ProgressInterval consumed records. Committed counts may lag the
	// stream position by up to one uncommitted buffer.
	Progress func(Stats)
}

// Stats summarize a finished (or aborted) ingestion run.
type Stats struct {
	Processed int64 // records written
	Skipped   int64 // records rejected by the release policy
	Errors    int64 // malformed or unconvertible records
	Duration  time.Duration
}

// Attempts returns how many records the run consumed from the stream.
func (s *Stats) Attempts() int64 {
	return s.Processed + s.Skipped + s.Errors
}

// Ingestor writes dump streams into the database.
type Ingestor struct {
	db  *database.DB
	cfg *config.IngestConfig
}

// NewIngestor creates an Ingestor with the given configuration.
func NewIngestor(db *database.DB, cfg *config.IngestConfig) *Ingestor {
	return &Ingestor{db: db, cfg: cfg}
}

// Ingest streams records of opts.Kind from src into the database.
// Records accumulate in memory and are committed in transactions of up
// to CommitInterval records; each transaction retries on transient
// conflicts. An abort mid-run (error ceiling, write failure,
// cancellation) preserves previously committed transactions and
// discards only the uncommitted tail.
func (ing *Ingestor) Ingest(ctx context.Context, src io.Reader, opts Options) (Stats, error) {
	var stats Stats
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		metrics.RecordIngestRun(string(opts.Kind), stats.Duration)
	}()

	if !opts.Kind.Valid() {
		return stats, fmt.Errorf("unknown entity kind %q", opts.Kind)
	}

	if opts.FileName != "" && !opts.Force {
		if prior, err := ing.db.GetDumpFile(ctx, opts.Kind, opts.FileName); err == nil {
			return stats, fmt.Errorf("%w: %s at %s (%d records)",
				ErrAlreadyIngested, opts.FileName, prior.IngestedAt.Format(time.RFC3339), prior.RecordCount)
		} else if !errors.Is(err, database.ErrNotFound) {
			return stats, err
		}
	}

	var policy *ReleasePolicy
	if opts.Kind == models.KindReleases {
		var err error
		policy, err = NewReleasePolicy(ctx, ing.db, ing.cfg.ReleaseStrategy)
		if err != nil {
			return stats, err
		}
	}

	reader, err := dump.NewReader(src, opts.Kind)
	if err != nil {
		return stats, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close dump reader")
		}
	}()

	startEvent := logging.Info().
		Str("kind", string(opts.Kind)).
		Str("file", opts.FileName)
	if date, ok := dump.FileDate(opts.FileName); ok {
		startEvent = startEvent.Str("dump_date", date.Format("2006-01-02"))
	}
	startEvent.Msg("Starting dump ingestion")

	buffer := make([]*dump.Record, 0, ing.cfg.CommitInterval)
	var consumed int64 // records read off the stream, committed or not

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, dump.ErrMalformedRecord) {
			consumed++
			stats.Errors++
			metrics.RecordIngestSkip(string(opts.Kind), "malformed")
			logging.Debug().Err(err).Msg("Skipping malformed dump record")
			if err := ing.checkErrorRate(stats.Errors, consumed); err != nil {
				return stats, err
			}
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("dump stream failed: %w", err)
		}
		consumed++

		if policy != nil {
			ok, err := policy.Admit(ctx, rec.Release)
			if err != nil {
				return stats, fmt.Errorf("release policy check failed: %w", err)
			}
			if !ok {
				stats.Skipped++
				metrics.RecordIngestSkip(string(opts.Kind), "policy")
				continue
			}
		}

		buffer = append(buffer, rec)
		if len(buffer) >= ing.cfg.CommitInterval {
			n, failed, err := ing.flush(ctx, opts.Kind, buffer)
			stats.Processed += n
			stats.Errors += failed
			if err != nil {
				return stats, err
			}
			if failed > 0 {
				if err := ing.checkErrorRate(stats.Errors, consumed); err != nil {
					return stats, err
				}
			}
			buffer = buffer[:0]
		}

		if interval := int64(ing.cfg.ProgressInterval); interval > 0 && consumed%interval == 0 {
			logging.Info().
				Str("kind", string(opts.Kind)).
				Int64("consumed", consumed).
				Int64("committed", stats.Processed).
				Int64("skipped", stats.Skipped).
				Int64("errors", stats.Errors).
				Msg("Ingestion progress")
			if opts.Progress != nil {
				opts.Progress(stats)
			}
		}
	}

	if len(buffer) > 0 {
		n, failed, err := ing.flush(ctx, opts.Kind, buffer)
		stats.Processed += n
		stats.Errors += failed
		if err != nil {
			return stats, err
		}
	}

	if opts.FileName != "" {
		if err := ing.db.RecordDumpFile(ctx, opts.Kind, opts.FileName, stats.Processed, stats.Errors); err != nil {
			return stats, err
		}
	}

	logging.Info().
		Str("kind", string(opts.Kind)).
		Int64("processed", stats.Processed).
		Int64("skipped", stats.Skipped).
		Int64("errors", stats.Errors).
		Dur("elapsed", time.Since(start)).
		Msg("Dump ingestion finished")
	return stats, nil
}

// checkErrorRate aborts once the cumulative error share crosses the
// ceiling, after a minimum number of attempts.
func (ing *Ingestor) checkErrorRate(errCount, attempts int64) error {
	if attempts < minAttemptsForErrorRate {
		return nil
	}
	rate := float64(errCount) / float64(attempts)
	if rate > ing.cfg.MaxErrorRate {
		return fmt.Errorf("%w: %.1f%% of %d records (ceiling %.1f%%)",
			ErrErrorRateExceeded, rate*100, attempts, ing.cfg.MaxErrorRate*100)
	}
	return nil
}

// flush commits the buffered records in one retried transaction,
// writing in BatchSize groups. A constraint violation downgrades the
// batch to per-record transactions so one bad record does not sink the
// rest. Returns how many records were written and how many failed.
func (ing *Ingestor) flush(ctx context.Context, kind models.EntityKind, buffer []*dump.Record) (int64, int64, error) {
	flushStart := time.Now()

	var written, failed int64
	err := ing.db.WithTxRetry(ctx, ing.cfg.RetryAttempts, ing.cfg.RetryDelay, func(tx *sql.Tx) error {
		for i := 0; i < len(buffer); i += ing.cfg.BatchSize {
			end := i + ing.cfg.BatchSize
			if end > len(buffer) {
				end = len(buffer)
			}
			for _, rec := range buffer[i:end] {
				if err := ing.writeRecord(ctx, tx, rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
	switch {
	case err == nil:
		written = int64(len(buffer))
	case database.IsConstraintError(err):
		written, failed, err = ing.flushPerRecord(ctx, kind, buffer)
		if err != nil {
			return written, failed, err
		}
	default:
		return 0, 0, fmt.Errorf("failed to commit batch of %d %s: %w", len(buffer), kind, err)
	}

	metrics.RecordBatchFlush(time.Since(flushStart))
	metrics.IngestRecordsProcessed.WithLabelValues(string(kind)).Add(float64(written))
	return written, failed, nil
}

// flushPerRecord replays the buffer one transaction per record and
// skips the records that individually violate a storage constraint.
func (ing *Ingestor) flushPerRecord(ctx context.Context, kind models.EntityKind, buffer []*dump.Record) (int64, int64, error) {
	var written, failed int64
	for _, rec := range buffer {
		err := ing.db.WithTxRetry(ctx, ing.cfg.RetryAttempts, ing.cfg.RetryDelay, func(tx *sql.Tx) error {
			return ing.writeRecord(ctx, tx, rec)
		})
		switch {
		case err == nil:
			written++
		case database.IsConstraintError(err):
			failed++
			metrics.RecordIngestSkip(string(kind), "write_error")
			logging.Warn().
				Err(err).
				Str("kind", string(kind)).
				Int64("id", rec.ID()).
				Msg("Record rejected by storage constraint")
		default:
			return written, failed, fmt.Errorf("failed to commit %s record %d: %w", kind, rec.ID(), err)
		}
	}
	return written, failed, nil
}

// writeRecord upserts one record and its provenance row inside tx.
func (ing *Ingestor) writeRecord(ctx context.Context, tx *sql.Tx, rec *dump.Record) error {
	switch rec.Kind {
	case models.KindArtists:
		a, err := artistFromDocument(rec.Artist)
		if err != nil {
			return err
		}
		if err := database.UpsertArtist(ctx, tx, a); err != nil {
			return err
		}
	case models.KindLabels:
		l, err := labelFromDocument(rec.Label)
		if err != nil {
			return err
		}
		if err := database.UpsertLabel(ctx, tx, l); err != nil {
			return err
		}
	case models.KindMasters:
		m, err := masterFromDocument(rec.Master)
		if err != nil {
			return err
		}
		if err := database.UpsertMaster(ctx, tx, m); err != nil {
			return err
		}
	case models.KindReleases:
		r, err := releaseFromDocument(rec.Release)
		if err != nil {
			return err
		}
		if err := database.UpsertRelease(ctx, tx, r); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown entity kind %q", rec.Kind)
	}

	return database.RecordProvenance(ctx, tx, rec.Kind.Table(), rec.ID(), models.SourceDump)
}
