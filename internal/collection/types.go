// Package collection implements the Collection Client: configured
// collection sources, their served index documents, fuzzy search over
// cached entries, and hash-verified downloads.
package collection

import "time"

// Ref is one configured collection source.
type Ref struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Priority int    `yaml:"priority" json:"priority"`
}

// Config is the persisted local collection configuration.
type Config struct {
	Collections []Ref `yaml:"collections" json:"collections"`
}

// Index is the Collection Index document served at a Ref's URL.
type Index struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	Libraries []Library  `json:"libraries"`
}

// Library is one library entry within a served Index.
type Library struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Versions    []Version `json:"versions"`
}

// Version is one downloadable version of a Library.
type Version struct {
	Version            string `json:"version"`
	ContentVersion     string `json:"contentVersion,omitempty"`
	ContentVersionType string `json:"contentVersionType,omitempty"`
	DownloadURL        string `json:"downloadURL"`
	ContentHash        string `json:"contentHash"`
	FileSize           int64  `json:"fileSize,omitempty"`
}

// Definition is the collection.json document: a named bundle of library
// references, each either required or optional, or a nested collection.
type Definition struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Items       []Item `json:"items"`
}

// Item is one entry in a Definition's Items list: exactly one of Library
// or Collection is set.
type Item struct {
	Library    string `json:"library,omitempty"`
	Collection string `json:"collection,omitempty"`
	Required   bool   `json:"required,omitempty"`
}

// SearchOptions narrows Search results.
type SearchOptions struct {
	ContentVersion string
}

// Entry is a resolved search/lookup result: one library version, with
// which collection it came from.
type Entry struct {
	Collection string
	Name       string
	Description string
	Version
}

// Progress reports a Download call's progress.
type Progress struct {
	Downloaded int64
	Total      int64
	Percent    float64
}

// ProgressFunc receives Progress events during Download.
type ProgressFunc func(Progress)

// DownloadOptions configures Download. Hash verification defaults to on;
// set SkipHashVerify for entries that lack a ContentHash.
type DownloadOptions struct {
	SkipHashVerify bool
	OnProgress     ProgressFunc
}
