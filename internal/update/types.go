// Package update implements the Update Planner: comparing installed
// packs against their origin collection and applying newer versions
// through the Pack Manager and Collection Client.
package update

import "github.com/libragen/libragen/internal/collection"

// Candidate is one pack eligible for update.
type Candidate struct {
	Name                  string
	CurrentVersion        string
	NewVersion            string
	CurrentContentVersion string
	NewContentVersion     string
	Entry                 collection.Entry
}

// FindOptions configures FindUpdates.
type FindOptions struct {
	// Force includes every installed pack with a collection origin as a
	// candidate, even when its version is not newer.
	Force bool
}

// Installed describes one installed pack as FindUpdates needs to see it:
// its name, current version/content version, and the collection it was
// installed from (empty if it has no collection origin).
type Installed struct {
	Name           string
	Version        string
	ContentVersion string
	Collection     string
}
