// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

// Package dump streams records out of Discogs bulk dump files. Dumps
// are multi-gigabyte XML documents, so the reader never materializes
// the document tree: it walks the token stream and decodes one record
// element at a time.
package dump

import (
	"bufio"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/discovault/discovault/internal/models"
)

// ErrMalformedRecord wraps per-record decode failures. Callers may skip
// the record and continue reading; any other error from Next is fatal
// for the stream.
var ErrMalformedRecord = errors.New("malformed dump record")

// Record is one decoded dump record. Exactly one of the document
// fields is non-nil, matching Kind.
type Record struct {
	Kind    models.EntityKind
	Artist  *models.ArtistDocument
	Label   *models.LabelDocument
	Master  *models.MasterDocument
	Release *models.ReleaseDocument
}

// ID returns the record's entity id regardless of kind.
func (r *Record) ID() int64 {
	switch r.Kind {
	case models.KindArtists:
		return r.Artist.ID
	case models.KindLabels:
		return r.Label.ID
	case models.KindMasters:
		return r.Master.ID
	case models.KindReleases:
		return r.Release.ID
	}
	return 0
}

// Reader streams records of one kind from a dump file. Gzip compression
// is detected from the stream's magic bytes, so both .xml and .xml.gz
// inputs work.
type Reader struct {
	kind    models.EntityKind
	element string
	dec     *xml.Decoder
	gz      *gzip.Reader
}

// recordElements maps each kind to its record element name. Nested
// occurrences (artist credits inside masters, sublabels inside labels)
// are consumed by DecodeElement before the token walk sees them.
var recordElements = map[models.EntityKind]string{
	models.KindArtists:  "artist",
	models.KindLabels:   "label",
	models.KindMasters:  "master",
	models.KindReleases: "release",
}

// NewReader wraps src for streaming records of the given kind.
func NewReader(src io.Reader, kind models.EntityKind) (*Reader, error) {
	element, ok := recordElements[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	br := bufio.NewReaderSize(src, 1<<16)
	var rd io.Reader = br
	var gz *gzip.Reader

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		rd = gz
	}

	return &Reader{
		kind:    kind,
		element: element,
		dec:     xml.NewDecoder(rd),
		gz:      gz,
	}, nil
}

// Next returns the next record in the stream. It returns io.EOF at the
// end, an ErrMalformedRecord-wrapped error for a skippable bad record,
// and any other error when the stream itself is unreadable.
func (r *Reader) Next() (*Record, error) {
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dump stream: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != r.element {
			continue
		}

		rec, err := r.decode(&se)
		if err != nil {
			// Syntax errors mean the stream itself is broken;
			// everything else is a bad record the caller may skip.
			var syntax *xml.SyntaxError
			if errors.As(err, &syntax) {
				return nil, fmt.Errorf("failed to read dump stream: %w", err)
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return rec, nil
	}
}

// decodeElement decodes one record element. When the decoder stops
// mid-element it advances past the broken element so the following
// siblings stay readable; validation happens after the element is
// fully consumed and must not touch the decoder.
func (r *Reader) decodeElement(v any, se *xml.StartElement) error {
	err := r.dec.DecodeElement(v, se)
	if err != nil {
		var syntax *xml.SyntaxError
		if !errors.As(err, &syntax) {
			_ = r.dec.Skip()
		}
	}
	return err
}

func (r *Reader) decode(se *xml.StartElement) (*Record, error) {
	switch r.kind {
	case models.KindArtists:
		var doc models.ArtistDocument
		if err := r.decodeElement(&doc, se); err != nil {
			return nil, err
		}
		if doc.ID <= 0 {
			return nil, errors.New("missing artist id")
		}
		if doc.Name == "" {
			return nil, fmt.Errorf("artist %d has no name", doc.ID)
		}
		return &Record{Kind: r.kind, Artist: &doc}, nil

	case models.KindLabels:
		var doc models.LabelDocument
		if err := r.decodeElement(&doc, se); err != nil {
			return nil, err
		}
		if doc.ID <= 0 {
			return nil, errors.New("missing label id")
		}
		if doc.Name == "" {
			return nil, fmt.Errorf("label %d has no name", doc.ID)
		}
		return &Record{Kind: r.kind, Label: &doc}, nil

	case models.KindMasters:
		var doc models.MasterDocument
		if err := r.decodeElement(&doc, se); err != nil {
			return nil, err
		}
		if doc.ID <= 0 {
			return nil, errors.New("missing master id")
		}
		if doc.Title == "" {
			return nil, fmt.Errorf("master %d has no title", doc.ID)
		}
		return &Record{Kind: r.kind, Master: &doc}, nil

	case models.KindReleases:
		var doc models.ReleaseDocument
		if err := r.decodeElement(&doc, se); err != nil {
			return nil, err
		}
		if doc.ID <= 0 {
			return nil, errors.New("missing release id")
		}
		if doc.Title == "" {
			return nil, fmt.Errorf("release %d has no title", doc.ID)
		}
		return &Record{Kind: r.kind, Release: &doc}, nil
	}

	return nil, fmt.Errorf("unknown entity kind %q", r.kind)
}

// Close releases the decompressor, if any. The underlying source is
// owned by the caller.
func (r *Reader) Close() error {
	if r.gz != nil {
		return r.gz.Close()
	}
	return nil
}
