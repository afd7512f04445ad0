// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package dump

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/discovault/discovault/internal/models"
)

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

const artistsXML = `<?xml version="1.0" encoding="UTF-8"?>
<artists>
	<artist><id>1</id><name>First Artist</name></artist>
	<artist><id>2</id><name>Second Artist</name><realname>Real Two</realname></artist>
	<artist><id>3</id><name>Third Artist</name></artist>
</artists>`

func drain(t *testing.T, r *Reader) (records []*Record, malformed int) {
	t.Helper()
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, malformed
		}
		if errors.Is(err, ErrMalformedRecord) {
			malformed++
			continue
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		records = append(records, rec)
	}
}

func TestReaderPlainXML(t *testing.T) {
	r, err := NewReader(strings.NewReader(artistsXML), models.KindArtists)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	records, malformed := drain(t, r)
	if malformed != 0 {
		t.Errorf("malformed = %d, want 0", malformed)
	}
	if len(records) != 3 {
		t.Fatalf("record count = %d, want 3", len(records))
	}
	if records[0].ID() != 1 || records[2].ID() != 3 {
		t.Errorf("unexpected ids: %d, %d", records[0].ID(), records[2].ID())
	}
	if records[1].Artist.RealName != "Real Two" {
		t.Errorf("realname = %q", records[1].Artist.RealName)
	}
}

func TestReaderGzipDetection(t *testing.T) {
	r, err := NewReader(bytes.NewReader(gzipBytes(t, artistsXML)), models.KindArtists)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	records, _ := drain(t, r)
	if len(records) != 3 {
		t.Errorf("record count = %d, want 3", len(records))
	}
}

func TestReaderSkipsMalformedRecords(t *testing.T) {
	xmlData := `<artists>
		<artist><id>1</id><name>Good</name></artist>
		<artist><name>No ID</name></artist>
		<artist><id>2</id></artist>
		<artist><id>3</id><name>Also Good</name></artist>
	</artists>`

	r, err := NewReader(strings.NewReader(xmlData), models.KindArtists)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	records, malformed := drain(t, r)
	if malformed != 2 {
		t.Errorf("malformed = %d, want 2", malformed)
	}
	if len(records) != 2 || records[0].ID() != 1 || records[1].ID() != 3 {
		t.Errorf("unexpected surviving records: %+v", records)
	}
}

func TestReaderRecoversFromUndecodableRecord(t *testing.T) {
	xmlData := `<artists>
		<artist><id>not-a-number</id><name>Broken</name></artist>
		<artist><id>7</id><name>Survivor</name></artist>
	</artists>`

	r, err := NewReader(strings.NewReader(xmlData), models.KindArtists)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	records, malformed := drain(t, r)
	if malformed != 1 {
		t.Errorf("malformed = %d, want 1", malformed)
	}
	if len(records) != 1 || records[0].ID() != 7 {
		t.Errorf("unexpected surviving records: %+v", records)
	}
}

func TestReaderMastersIgnoreNestedArtists(t *testing.T) {
	xmlData := `<masters>
		<master id="10">
			<title>Master Ten</title>
			<year>1999</year>
			<artists><artist><id>1</id><name>Credited</name></artist></artists>
		</master>
	</masters>`

	r, err := NewReader(strings.NewReader(xmlData), models.KindMasters)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	records, malformed := drain(t, r)
	if malformed != 0 {
		t.Errorf("malformed = %d, want 0", malformed)
	}
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1 (nested artist leaked?)", len(records))
	}
	m := records[0].Master
	if m.ID != 10 || m.Year != 1999 || len(m.Artists) != 1 {
		t.Errorf("unexpected master: %+v", m)
	}
}

func TestReaderReleases(t *testing.T) {
	xmlData := `<releases>
		<release id="100" status="Accepted">
			<title>Album</title>
			<released>1987-06-15</released>
			<master_id is_main_release="true">456</master_id>
			<labels><label name="L" catno="C-1" id="7"/></labels>
			<tracklist>
				<track><position>A1</position><title>One</title></track>
				<track><position>A2</position><title>Two</title></track>
			</tracklist>
		</release>
		<release id="101"><title>Second</title></release>
	</releases>`

	r, err := NewReader(strings.NewReader(xmlData), models.KindReleases)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	records, malformed := drain(t, r)
	if malformed != 0 {
		t.Errorf("malformed = %d, want 0", malformed)
	}
	if len(records) != 2 {
		t.Fatalf("record count = %d, want 2", len(records))
	}
	doc := records[0].Release
	if doc.MasterID() != 456 || doc.Year() != 1987 {
		t.Errorf("master/year = %d/%d", doc.MasterID(), doc.Year())
	}
	if len(doc.Tracklist) != 2 || doc.Tracklist[0].Position != "A1" {
		t.Errorf("unexpected tracklist: %+v", doc.Tracklist)
	}
}

func TestReaderUnknownKind(t *testing.T) {
	if _, err := NewReader(strings.NewReader("<x/>"), models.EntityKind("genres")); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestReaderTruncatedStreamIsFatal(t *testing.T) {
	truncated := `<artists><artist><id>1</id><name>Good</name></artist><artist><id>2`
	r, err := NewReader(strings.NewReader(truncated), models.KindArtists)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	if _, err := r.Next(); err != nil {
		t.Fatalf("first record should decode: %v", err)
	}
	_, err = r.Next()
	if err == nil || err == io.EOF || errors.Is(err, ErrMalformedRecord) {
		t.Errorf("truncated stream error = %v, want fatal stream error", err)
	}
}
