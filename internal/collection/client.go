package collection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// searchDoc is the document shape indexed in the in-memory search index.
type searchDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// docID identifies a searchDoc by its owning collection and library name.
type docID struct {
	Collection string
	Name       string
}

func (d docID) String() string { return d.Collection + "/" + d.Name }

// Client ties together configured collection sources, their cached
// served indexes, and fuzzy search over every cached entry.
type Client struct {
	configPath string
	cache      *indexCache
	hc         *http.Client

	mu      sync.Mutex
	entries map[docID]Entry
	order   []docID // populated by Refresh in ascending-priority order
	search  bleve.Index
}

// NewClient builds a Client. configPath is where the collections list
// persists; cacheDir is where fetched Index documents are cached on
// disk (may be empty to disable the disk tier).
func NewClient(configPath, cacheDir string) (*Client, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	return &Client{
		configPath: configPath,
		cache:      newIndexCache(cacheDir, DefaultCacheTTL),
		hc:         &http.Client{},
		entries:    make(map[docID]Entry),
		search:     idx,
	}, nil
}

// Refresh fetches (or serves from cache) every configured collection's
// Index and rebuilds the in-memory search index over their entries.
func (c *Client) Refresh(ctx context.Context) error {
	refs, err := List(c.configPath)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[docID]Entry)
	c.order = nil
	batch := c.search.NewBatch()
	for _, ref := range refs { // refs is already sorted ascending by priority
		idx, err := c.cache.Get(ctx, ref.URL, false)
		if err != nil {
			continue // unreachable collection source degrades, doesn't fail Refresh
		}
		for _, lib := range idx.Libraries {
			if len(lib.Versions) == 0 {
				continue
			}
			latest := latestVersion(lib.Versions)
			id := docID{Collection: ref.Name, Name: lib.Name}
			c.entries[id] = Entry{
				Collection:  ref.Name,
				Name:        lib.Name,
				Description: lib.Description,
				Version:     latest,
			}
			c.order = append(c.order, id)
			doc := searchDoc{Name: lib.Name, Description: lib.Description}
			if err := batch.Index(id.String(), doc); err != nil {
				return liberrors.Wrap(liberrors.Internal, err)
			}
		}
	}
	if err := c.search.Batch(batch); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	return nil
}

// latestVersion picks the lexicographically greatest Version.Version.
// The order of versions does not affect the result, and the comparison
// is plain string order, so "1.10.0" ranks below "1.9.0".
func latestVersion(versions []Version) Version {
	best := versions[0]
	for _, v := range versions[1:] {
		if v.Version > best.Version {
			best = v
		}
	}
	return best
}

// Search returns cached entries matching query. It always includes a
// plain substring match over name and description as a floor, layered
// with bleve match-query results, which match any single query term, so
// reordered words or a subset of the words still surface libraries.
// Typos are not matched. Results are sorted by name.
func (c *Client) Search(query string, opts SearchOptions) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := make(map[docID]bool)
	var results []Entry

	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	if lowerQuery != "" {
		for id, entry := range c.entries {
			if strings.Contains(strings.ToLower(entry.Name), lowerQuery) ||
				strings.Contains(strings.ToLower(entry.Description), lowerQuery) {
				if !matched[id] {
					matched[id] = true
					results = append(results, entry)
				}
			}
		}

		req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
		req.Size = 50
		hits, err := c.search.Search(req)
		if err == nil {
			for _, hit := range hits.Hits {
				id := parseDocID(hit.ID)
				if matched[id] {
					continue
				}
				entry, ok := c.entries[id]
				if !ok {
					continue
				}
				matched[id] = true
				results = append(results, entry)
			}
		}
	} else {
		for _, entry := range c.entries {
			results = append(results, entry)
		}
	}

	if opts.ContentVersion != "" {
		filtered := results[:0]
		for _, e := range results {
			if e.ContentVersion == opts.ContentVersion {
				filtered = append(filtered, e)
			}
		}
		results = filtered
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func parseDocID(s string) docID {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return docID{}
	}
	return docID{Collection: parts[0], Name: parts[1]}
}

// GetEntry returns the latest cached Entry for name, across whichever
// configured collection serves it first by ascending priority.
func (c *Client) GetEntry(name string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		if id.Name == name {
			e := c.entries[id]
			return &e, nil
		}
	}
	return nil, liberrors.New(liberrors.NotFound, fmt.Sprintf("library %q not found in any configured collection", name), nil)
}

// GetEntryIn returns the cached Entry for name scoped to one named
// collection, or a NotFound error if that collection does not serve it.
func (c *Client) GetEntryIn(collectionName, name string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[docID{Collection: collectionName, Name: name}]
	if !ok {
		return nil, liberrors.New(liberrors.NotFound, fmt.Sprintf("library %q not found in collection %q", name, collectionName), nil)
	}
	e := entry
	return &e, nil
}

// Download fetches entry's pack to destPath, verifying its declared
// content hash unless opts.SkipHashVerify is set.
func (c *Client) Download(ctx context.Context, entry Entry, destPath string, opts DownloadOptions) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.DownloadURL, nil)
	if err != nil {
		return liberrors.Wrap(liberrors.Transport, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return liberrors.Wrap(liberrors.Transport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return liberrors.New(liberrors.Transport, fmt.Sprintf("downloading %s: status %s", entry.Name, resp.Status), nil)
	}

	tmpPath := destPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	defer os.Remove(tmpPath)

	hasher := sha256.New()
	var downloaded int64
	total := resp.ContentLength
	if total <= 0 {
		total = entry.FileSize
	}
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				file.Close()
				return liberrors.Wrap(liberrors.Internal, err)
			}
			hasher.Write(buf[:n])
			downloaded += int64(n)
			if opts.OnProgress != nil {
				pct := 0.0
				if total > 0 {
					pct = float64(downloaded) / float64(total) * 100
				}
				opts.OnProgress(Progress{Downloaded: downloaded, Total: total, Percent: pct})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			return liberrors.Wrap(liberrors.Transport, readErr)
		}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return liberrors.Wrap(liberrors.Internal, err)
	}
	if err := file.Close(); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}

	if !opts.SkipHashVerify && entry.ContentHash != "" {
		sum := "sha256:" + hex.EncodeToString(hasher.Sum(nil))
		if sum != entry.ContentHash {
			return liberrors.New(liberrors.HashMismatch,
				fmt.Sprintf("downloaded content for %s does not match declared hash", entry.Name), nil)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	return nil
}
