// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package models

import (
	"encoding/xml"
	"testing"
)

func TestReleaseDocumentDecode(t *testing.T) {
	raw := `<release id="123" status="Accepted">
		<title>Test Album</title>
		<country>UK</country>
		<released>1987-06-15</released>
		<master_id is_main_release="true">456</master_id>
		<artists>
			<artist><id>10</id><name>Artist A</name><anv>A. Artist</anv><join>&amp;</join></artist>
		</artists>
		<extraartists>
			<artist><id>11</id><name>Producer B</name><role>Producer</role><tracks>A1</tracks></artist>
		</extraartists>
		<labels>
			<label name="Test Records" catno="TR-001" id="77"/>
		</labels>
		<formats>
			<format name="Vinyl" qty="1"><descriptions><description>LP</description><description>Album</description></descriptions></format>
		</formats>
		<genres><genre>Electronic</genre></genres>
		<styles><style>Ambient</style></styles>
		<tracklist>
			<track><position>A1</position><title>Opener</title><duration>4:20</duration></track>
			<track><position>A2</position><title>Closer</title><duration>3:10</duration></track>
		</tracklist>
	</release>`

	var doc ReleaseDocument
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc.ID != 123 {
		t.Errorf("ID = %d, want 123", doc.ID)
	}
	if doc.Status != "Accepted" {
		t.Errorf("Status = %q, want Accepted", doc.Status)
	}
	if doc.MasterID() != 456 {
		t.Errorf("MasterID() = %d, want 456", doc.MasterID())
	}
	if doc.Master == nil || !doc.Master.IsMainRelease {
		t.Error("expected master reference flagged as main release")
	}
	if doc.Year() != 1987 {
		t.Errorf("Year() = %d, want 1987", doc.Year())
	}
	if len(doc.Artists) != 1 || doc.Artists[0].ID != 10 || doc.Artists[0].ANV != "A. Artist" {
		t.Errorf("unexpected artists: %+v", doc.Artists)
	}
	if len(doc.ExtraArtists) != 1 || doc.ExtraArtists[0].Role != "Producer" || doc.ExtraArtists[0].Tracks != "A1" {
		t.Errorf("unexpected extraartists: %+v", doc.ExtraArtists)
	}
	if len(doc.Labels) != 1 || doc.Labels[0].ID != 77 || doc.Labels[0].CatalogNumber != "TR-001" {
		t.Errorf("unexpected labels: %+v", doc.Labels)
	}
	if len(doc.Formats) != 1 || len(doc.Formats[0].Descriptions) != 2 {
		t.Errorf("unexpected formats: %+v", doc.Formats)
	}
	if len(doc.Tracklist) != 2 || doc.Tracklist[0].Position != "A1" || doc.Tracklist[1].Title != "Closer" {
		t.Errorf("unexpected tracklist: %+v", doc.Tracklist)
	}
}

func TestReleaseDocumentYear(t *testing.T) {
	tests := []struct {
		released string
		want     int
	}{
		{"1987-06-15", 1987},
		{"1987-06", 1987},
		{"1987", 1987},
		{"", 0},
		{"unknown", 0},
		{"0000", 0},
		{"87", 0},
	}
	for _, tt := range tests {
		doc := ReleaseDocument{Released: tt.released}
		if got := doc.Year(); got != tt.want {
			t.Errorf("Year(%q) = %d, want %d", tt.released, got, tt.want)
		}
	}
}

func TestArtistDocumentDecode(t *testing.T) {
	raw := `<artist>
		<id>42</id>
		<name>Test Artist</name>
		<realname>Real Name</realname>
		<profile>Some profile.</profile>
		<data_quality>Correct</data_quality>
		<namevariations><name>T. Artist</name></namevariations>
		<aliases><name id="43">Alias One</name></aliases>
	</artist>`

	var doc ArtistDocument
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.ID != 42 || doc.Name != "Test Artist" {
		t.Errorf("unexpected identity: %+v", doc)
	}
	if len(doc.Aliases) != 1 || doc.Aliases[0].ID != 43 || doc.Aliases[0].Name != "Alias One" {
		t.Errorf("unexpected aliases: %+v", doc.Aliases)
	}
}

func TestLabelDocumentDecode(t *testing.T) {
	raw := `<label>
		<id>7</id>
		<name>Test Records</name>
		<contactinfo>PO Box 1</contactinfo>
		<parentLabel id="5">Parent Group</parentLabel>
		<sublabels><label id="8">Sub One</label></sublabels>
	</label>`

	var doc LabelDocument
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.ID != 7 || doc.Name != "Test Records" {
		t.Errorf("unexpected identity: %+v", doc)
	}
	if doc.ParentLabel == nil || doc.ParentLabel.ID != 5 {
		t.Errorf("unexpected parent label: %+v", doc.ParentLabel)
	}
	if len(doc.Sublabels) != 1 || doc.Sublabels[0].ID != 8 {
		t.Errorf("unexpected sublabels: %+v", doc.Sublabels)
	}
}
