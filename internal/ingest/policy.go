// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/discovault/discovault/internal/config"
	"github.com/discovault/discovault/internal/database"
	"github.com/discovault/discovault/internal/logging"
	"github.com/discovault/discovault/internal/models"
)

// ErrEmptyCollection is returned when a collection-scoped release
// strategy is requested but no collection has been synced yet, which
// would silently ingest nothing.
var ErrEmptyCollection = errors.New("release strategy requires a synced collection, but no collection items exist")

// ReleasePolicy decides per release record whether it is ingested.
// The plain collection strategy preloads its id set once; the
// master-expansion strategy queries current linkage per record so a
// collection sync running alongside the ingestion is respected.
type ReleasePolicy struct {
	strategy config.ReleaseStrategy
	db       *database.DB
	releases map[int64]struct{}
}

// NewReleasePolicy builds the policy for one ingestion run.
func NewReleasePolicy(ctx context.Context, db *database.DB, strategy config.ReleaseStrategy) (*ReleasePolicy, error) {
	p := &ReleasePolicy{strategy: strategy, db: db}

	switch strategy {
	case config.StrategyAll, config.StrategyNone:
		return p, nil

	case config.StrategyCollection, config.StrategyCollectionMasters:
		has, err := db.HasCollectionItems(ctx)
		if err != nil {
			return nil, err
		}
		if !has {
			return nil, ErrEmptyCollection
		}

		if strategy == config.StrategyCollection {
			p.releases, err = db.CollectionReleaseIDs(ctx)
			if err != nil {
				return nil, err
			}
		}

		logging.Info().
			Str("strategy", string(strategy)).
			Int("collection_releases", len(p.releases)).
			Msg("Release policy loaded")
		return p, nil

	default:
		return nil, fmt.Errorf("unknown release strategy %q", strategy)
	}
}

// Admit reports whether the release record passes the strategy filter.
func (p *ReleasePolicy) Admit(ctx context.Context, doc *models.ReleaseDocument) (bool, error) {
	switch p.strategy {
	case config.StrategyAll:
		return true, nil

	case config.StrategyNone:
		return false, nil

	case config.StrategyCollection:
		_, ok := p.releases[doc.ID]
		return ok, nil

	case config.StrategyCollectionMasters:
		held, err := p.db.ReleaseInCollection(ctx, doc.ID)
		if err != nil || held {
			return held, err
		}
		if masterID := doc.MasterID(); masterID > 0 {
			return p.db.MasterInCollection(ctx, masterID)
		}
		return false, nil
	}
	return false, nil
}
