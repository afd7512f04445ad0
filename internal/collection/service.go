// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package collection

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/logging"
)

// Service runs collection syncs on a fixed interval as a suture
// service. A failed sync is logged and retried at the next tick; only
// context cancellation stops the service.
type Service struct {
	syncer *Syncer
	cfg    *config.SyncConfig
	opts   SyncOptions
}

// NewService wraps a Syncer for periodic supervised execution.
func NewService(syncer *Syncer, cfg *config.SyncConfig) *Service {
	return &Service{
		syncer: syncer,
		cfg:    cfg,
		opts:   SyncOptions{Force: cfg.Force},
	}
}

// Serve implements suture.Service. It syncs once immediately, then on
// every interval tick until the context is canceled.
func (s *Service) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.cfg.Interval).
		Bool("force", s.opts.Force).
		Msg("Starting periodic collection sync")

	s.syncOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Stopping periodic collection sync")
			return ctx.Err()
		case <-ticker.C:
			s.syncOnce(ctx)
		}
	}
}

func (s *Service) syncOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.syncer.SyncCollection(ctx, s.opts); err != nil {
		logging.Warn().Err(err).Msg("Periodic collection sync failed (will retry on next tick)")
	}
}

// String names the service in supervisor logs.
func (s *Service) String() string {
	return "collection-sync"
}

// NewSupervisor builds the root supervisor hosting the periodic sync
// service, with suture events bridged into the structured logger.
func NewSupervisor(svc *Service) *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	sup := suture.New("discovault", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	sup.Add(svc)
	return sup
}
