// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package models

import (
	"strconv"
	"strings"
)

// Document types decoded from the bulk dump XML and stored verbatim as
// the raw_document JSON column. XML tags follow the dump schema; JSON
// tags define the stored shape the materializer reads back.
//
// Artists and labels carry their ID as a child element; masters and
// releases carry it as an attribute on the record element.

// NameRef is a minimal reference to another entity by id and name.
type NameRef struct {
	ID   int64  `xml:"id,attr" json:"id"`
	Name string `xml:",chardata" json:"name"`
}

// ArtistDocument is one <artist> record from an artists dump.
type ArtistDocument struct {
	ID             int64     `xml:"id" json:"id"`
	Name           string    `xml:"name" json:"name"`
	RealName       string    `xml:"realname" json:"realname,omitempty"`
	Profile        string    `xml:"profile" json:"profile,omitempty"`
	DataQuality    string    `xml:"data_quality" json:"data_quality,omitempty"`
	URLs           []string  `xml:"urls>url" json:"urls,omitempty"`
	NameVariations []string  `xml:"namevariations>name" json:"namevariations,omitempty"`
	Aliases        []NameRef `xml:"aliases>name" json:"aliases,omitempty"`
	Groups         []NameRef `xml:"groups>name" json:"groups,omitempty"`
	Members        []NameRef `xml:"members>name" json:"members,omitempty"`
}

// LabelDocument is one <label> record from a labels dump.
type LabelDocument struct {
	ID          int64     `xml:"id" json:"id"`
	Name        string    `xml:"name" json:"name"`
	ContactInfo string    `xml:"contactinfo" json:"contactinfo,omitempty"`
	Profile     string    `xml:"profile" json:"profile,omitempty"`
	DataQuality string    `xml:"data_quality" json:"data_quality,omitempty"`
	ParentLabel *NameRef  `xml:"parentLabel" json:"parent_label,omitempty"`
	Sublabels   []NameRef `xml:"sublabels>label" json:"sublabels,omitempty"`
	URLs        []string  `xml:"urls>url" json:"urls,omitempty"`
}

// ArtistCredit is one artist entry inside a master or release record.
type ArtistCredit struct {
	ID     int64  `xml:"id" json:"id"`
	Name   string `xml:"name" json:"name"`
	ANV    string `xml:"anv" json:"anv,omitempty"`
	Join   string `xml:"join" json:"join,omitempty"`
	Role   string `xml:"role" json:"role,omitempty"`
	Tracks string `xml:"tracks" json:"tracks,omitempty"`
}

// LabelCredit is one label entry inside a release record. The dump
// encodes these entirely as attributes.
type LabelCredit struct {
	ID            int64  `xml:"id,attr" json:"id"`
	Name          string `xml:"name,attr" json:"name"`
	CatalogNumber string `xml:"catno,attr" json:"catno,omitempty"`
}

// TrackEntry is one tracklist entry inside a release record.
type TrackEntry struct {
	Position string `xml:"position" json:"position"`
	Title    string `xml:"title" json:"title"`
	Duration string `xml:"duration" json:"duration,omitempty"`
}

// FormatEntry is one format descriptor inside a release record.
type FormatEntry struct {
	Name         string   `xml:"name,attr" json:"name"`
	Quantity     string   `xml:"qty,attr" json:"qty,omitempty"`
	Text         string   `xml:"text,attr" json:"text,omitempty"`
	Descriptions []string `xml:"descriptions>description" json:"descriptions,omitempty"`
}

// IdentifierEntry is one identifier (barcode, matrix, etc.) on a release.
type IdentifierEntry struct {
	Type        string `xml:"type,attr" json:"type"`
	Value       string `xml:"value,attr" json:"value"`
	Description string `xml:"description,attr" json:"description,omitempty"`
}

// MasterDocument is one <master> record from a masters dump.
type MasterDocument struct {
	ID          int64          `xml:"id,attr" json:"id"`
	Title       string         `xml:"title" json:"title"`
	MainRelease int64          `xml:"main_release" json:"main_release,omitempty"`
	Year        int            `xml:"year" json:"year,omitempty"`
	DataQuality string         `xml:"data_quality" json:"data_quality,omitempty"`
	Notes       string         `xml:"notes" json:"notes,omitempty"`
	Genres      []string       `xml:"genres>genre" json:"genres,omitempty"`
	Styles      []string       `xml:"styles>style" json:"styles,omitempty"`
	Artists     []ArtistCredit `xml:"artists>artist" json:"artists,omitempty"`
}

// MasterRef is the master_id element on a release, which carries an
// is_main_release attribute alongside the id value. The id arrives as
// character data, so it is parsed lazily from Raw.
type MasterRef struct {
	Raw           string `xml:",chardata" json:"id"`
	IsMainRelease bool   `xml:"is_main_release,attr" json:"is_main_release,omitempty"`
}

// ID parses the referenced master id, returning 0 when unparseable.
func (m *MasterRef) ID() int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(m.Raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ReleaseDocument is one <release> record from a releases dump.
type ReleaseDocument struct {
	ID           int64             `xml:"id,attr" json:"id"`
	Status       string            `xml:"status,attr" json:"status,omitempty"`
	Title        string            `xml:"title" json:"title"`
	Country      string            `xml:"country" json:"country,omitempty"`
	Released     string            `xml:"released" json:"released,omitempty"`
	Notes        string            `xml:"notes" json:"notes,omitempty"`
	DataQuality  string            `xml:"data_quality" json:"data_quality,omitempty"`
	Master       *MasterRef        `xml:"master_id" json:"master,omitempty"`
	Artists      []ArtistCredit    `xml:"artists>artist" json:"artists,omitempty"`
	ExtraArtists []ArtistCredit    `xml:"extraartists>artist" json:"extraartists,omitempty"`
	Labels       []LabelCredit     `xml:"labels>label" json:"labels,omitempty"`
	Formats      []FormatEntry     `xml:"formats>format" json:"formats,omitempty"`
	Genres       []string          `xml:"genres>genre" json:"genres,omitempty"`
	Styles       []string          `xml:"styles>style" json:"styles,omitempty"`
	Tracklist    []TrackEntry      `xml:"tracklist>track" json:"tracklist,omitempty"`
	Identifiers  []IdentifierEntry `xml:"identifiers>identifier" json:"identifiers,omitempty"`
}

// Year extracts the release year from the free-form released date,
// which appears as YYYY, YYYY-MM, or YYYY-MM-DD. Returns 0 when no
// usable year is present.
func (d *ReleaseDocument) Year() int {
	s := d.Released
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	if len(s) != 4 {
		return 0
	}
	y, err := strconv.Atoi(s)
	if err != nil || y <= 0 {
		return 0
	}
	return y
}

// MasterID returns the referenced master id or 0 when absent.
func (d *ReleaseDocument) MasterID() int64 {
	if d.Master == nil {
		return 0
	}
	return d.Master.ID()
}
