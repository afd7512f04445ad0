// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

package discogs

// Identity is the authenticated account returned by /oauth/identity.
type Identity struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	ResourceURL  string `json:"resource_url"`
	ConsumerName string `json:"consumer_name"`
}

// Pagination is the standard Discogs page envelope.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
	URLs    struct {
		Next string `json:"next,omitempty"`
		Last string `json:"last,omitempty"`
	} `json:"urls"`
}

// Folder is one collection folder.
type Folder struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FoldersResponse wraps /users/{username}/collection/folders.
type FoldersResponse struct {
	Folders []Folder `json:"folders"`
}

// BasicInformation is the release summary embedded in collection items.
type BasicInformation struct {
	ID       int64  `json:"id"`
	MasterID int64  `json:"master_id"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Artists  []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		ANV  string `json:"anv"`
		Join string `json:"join"`
		Role string `json:"role"`
	} `json:"artists"`
	Labels []struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		CatNo string `json:"catno"`
	} `json:"labels"`
	Formats []struct {
		Name string `json:"name"`
		Qty  string `json:"qty"`
	} `json:"formats"`
	Genres []string `json:"genres"`
	Styles []string `json:"styles"`
}

// CollectionItem is one instance row from a collection page. The
// top-level ID is the release id; InstanceID distinguishes duplicate
// copies of the same release.
type CollectionItem struct {
	ID               int64            `json:"id"`
	InstanceID       int64            `json:"instance_id"`
	FolderID         int64            `json:"folder_id"`
	Rating           int              `json:"rating"`
	DateAdded        string           `json:"date_added"`
	Notes            string           `json:"notes,omitempty"`
	BasicInformation BasicInformation `json:"basic_information"`
}

// CollectionPageResponse wraps one page of
// /users/{username}/collection/folders/{folder}/releases.
type CollectionPageResponse struct {
	Pagination Pagination       `json:"pagination"`
	Releases   []CollectionItem `json:"releases"`
}
