package collection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// DefaultCacheTTL governs how long a fetched Index is trusted before
// it is re-fetched, both on disk and in the in-memory mirror.
const DefaultCacheTTL = 15 * time.Minute

const memCacheSize = 64

// indexCache fetches and caches served Index documents. A fetch is
// cached on disk keyed by the source URL's hash, and mirrored in an
// in-memory expirable LRU so repeated calls within one process
// lifetime skip re-parsing the on-disk file.
type indexCache struct {
	dir string
	ttl time.Duration
	mem *expirable.LRU[string, *Index]
	hc  *http.Client

	breakersMu sync.Mutex
	breakers   map[string]*liberrors.CircuitBreaker
}

func newIndexCache(dir string, ttl time.Duration) *indexCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &indexCache{
		dir:      dir,
		ttl:      ttl,
		mem:      expirable.NewLRU[string, *Index](memCacheSize, nil, ttl),
		hc:       &http.Client{Timeout: 30 * time.Second},
		breakers: make(map[string]*liberrors.CircuitBreaker),
	}
}

// breakerFor returns the per-source-URL circuit breaker, creating it on
// first use. A collection source that is persistently unreachable trips
// its breaker so Refresh fails fast instead of re-dialing a dead index
// URL on every poll.
func (c *indexCache) breakerFor(url string) *liberrors.CircuitBreaker {
	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()
	cb, ok := c.breakers[url]
	if !ok {
		cb = liberrors.NewCircuitBreaker(url,
			liberrors.WithMaxFailures(3),
			liberrors.WithResetTimeout(c.ttl),
		)
		c.breakers[url] = cb
	}
	return cb
}

type cacheEnvelope struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Index     Index     `json:"index"`
}

// Get returns the Index for url, using the in-memory cache, then the
// on-disk cache, then a live fetch, in that order. forceRefresh skips
// both caches.
func (c *indexCache) Get(ctx context.Context, url string, forceRefresh bool) (*Index, error) {
	key := cacheKey(url)

	if !forceRefresh {
		if idx, ok := c.mem.Get(key); ok {
			return idx, nil
		}
		if idx, ok := c.readDisk(key); ok {
			c.mem.Add(key, idx)
			return idx, nil
		}
	}

	cb := c.breakerFor(url)
	if !cb.Allow() {
		return nil, liberrors.New(liberrors.Transport,
			fmt.Sprintf("collection source %s is circuit-open after repeated failures", url), nil)
	}

	idx, err := c.fetch(ctx, url)
	if err != nil {
		cb.RecordFailure()
		return nil, err
	}
	cb.RecordSuccess()
	c.mem.Add(key, idx)
	c.writeDisk(key, idx)
	return idx, nil
}

func (c *indexCache) fetch(ctx context.Context, url string) (*Index, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Transport, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Transport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, liberrors.New(liberrors.Transport, fmt.Sprintf("fetching %s: status %s", url, resp.Status), nil)
	}
	var idx Index
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return nil, liberrors.New(liberrors.InvalidFormat, fmt.Sprintf("decoding index from %s", url), err)
	}
	return &idx, nil
}

func (c *indexCache) readDisk(key string) (*Index, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, key+".json"))
	if err != nil {
		return nil, false
	}
	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if time.Since(env.FetchedAt) > c.ttl {
		return nil, false
	}
	idx := env.Index
	return &idx, true
}

func (c *indexCache) writeDisk(key string, idx *Index) {
	if c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	data, err := json.Marshal(cacheEnvelope{FetchedAt: time.Now(), Index: *idx})
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(c.dir, key+".json"), data, 0o644)
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
