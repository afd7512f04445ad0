// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package ingest

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/discovault/discovault/internal/models"
)

// Converters extract the scalar columns from a dump document and embed
// the full document as the stored raw JSON.

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(i int) *int {
	if i <= 0 {
		return nil
	}
	return &i
}

func optInt64(i int64) *int64 {
	if i <= 0 {
		return nil
	}
	return &i
}

func artistFromDocument(doc *models.ArtistDocument) (*models.Artist, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artist %d: %w", doc.ID, err)
	}
	return &models.Artist{
		ID:          doc.ID,
		Name:        doc.Name,
		RealName:    optString(doc.RealName),
		Profile:     optString(doc.Profile),
		DataQuality: optString(doc.DataQuality),
		RawDocument: raw,
	}, nil
}

func labelFromDocument(doc *models.LabelDocument) (*models.Label, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode label %d: %w", doc.ID, err)
	}
	l := &models.Label{
		ID:          doc.ID,
		Name:        doc.Name,
		ContactInfo: optString(doc.ContactInfo),
		Profile:     optString(doc.Profile),
		DataQuality: optString(doc.DataQuality),
		RawDocument: raw,
	}
	if doc.ParentLabel != nil {
		l.ParentLabelID = optInt64(doc.ParentLabel.ID)
	}
	return l, nil
}

func masterFromDocument(doc *models.MasterDocument) (*models.Master, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode master %d: %w", doc.ID, err)
	}
	return &models.Master{
		ID:            doc.ID,
		Title:         doc.Title,
		MainReleaseID: optInt64(doc.MainRelease),
		Year:          optInt(doc.Year),
		DataQuality:   optString(doc.DataQuality),
		RawDocument:   raw,
	}, nil
}

func releaseFromDocument(doc *models.ReleaseDocument) (*models.Release, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode release %d: %w", doc.ID, err)
	}
	return &models.Release{
		ID:          doc.ID,
		Title:       doc.Title,
		MasterID:    optInt64(doc.MasterID()),
		Year:        optInt(doc.Year()),
		Country:     optString(doc.Country),
		Status:      optString(doc.Status),
		DataQuality: optString(doc.DataQuality),
		RawDocument: raw,
	}, nil
}

// relationshipRows derives the join-table rows from one release
// document. Credits without a usable entity id are dropped; tracks are
// numbered in document order.
func relationshipRows(releaseID int64, doc *models.ReleaseDocument) (
	artists []models.ReleaseArtist, labels []models.ReleaseLabel, tracks []models.Track) {

	addCredit := func(c models.ArtistCredit) {
		if c.ID <= 0 {
			return
		}
		artists = append(artists, models.ReleaseArtist{
			ReleaseID: releaseID,
			ArtistID:  c.ID,
			Role:      c.Role,
			Name:      c.Name,
			ANV:       c.ANV,
			Join:      c.Join,
			Tracks:    c.Tracks,
		})
	}
	for _, c := range doc.Artists {
		addCredit(c)
	}
	for _, c := range doc.ExtraArtists {
		addCredit(c)
	}

	for _, l := range doc.Labels {
		if l.ID <= 0 {
			continue
		}
		labels = append(labels, models.ReleaseLabel{
			ReleaseID:     releaseID,
			LabelID:       l.ID,
			CatalogNumber: l.CatalogNumber,
		})
	}

	for i, t := range doc.Tracklist {
		tracks = append(tracks, models.Track{
			ReleaseID: releaseID,
			Seq:       i,
			Position:  t.Position,
			Title:     t.Title,
			Duration:  t.Duration,
		})
	}

	return artists, labels, tracks
}
