package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	liberrors "github.com/libragen/libragen/internal/errors"
	"github.com/libragen/libragen/internal/pack"
)

// ResolveCollection fetches and walks the collection.json Definition at
// source (a URL or local path), resolving each Item against the client's
// configured collections to find a downloadable version. Nested
// Collection items are resolved recursively, each contributing its own
// items to the parent's required/optional lists per their own flag.
func (c *Client) ResolveCollection(ctx context.Context, source string) (required, optional []Entry, err error) {
	if err := c.Refresh(ctx); err != nil {
		return nil, nil, err
	}
	def, err := c.fetchDefinition(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	return c.resolveDefinition(ctx, def, make(map[string]bool))
}

func (c *Client) resolveDefinition(ctx context.Context, def *Definition, seen map[string]bool) (required, optional []Entry, err error) {
	if seen[def.Name] {
		return nil, nil, liberrors.New(liberrors.InvalidFormat, fmt.Sprintf("collection %q is self-referential", def.Name), nil)
	}
	seen[def.Name] = true

	for _, item := range def.Items {
		switch {
		case item.Library != "":
			entry, err := c.GetEntry(item.Library)
			if err != nil {
				return nil, nil, err
			}
			if item.Required {
				required = append(required, *entry)
			} else {
				optional = append(optional, *entry)
			}

		case item.Collection != "":
			// A collection reference carries no required flag of its own; each
			// nested item keeps the required/optional status it declares.
			nested, nestedErr := c.resolveNamedCollection(ctx, item.Collection, seen)
			if nestedErr != nil {
				return nil, nil, nestedErr
			}
			required = append(required, nested.required...)
			optional = append(optional, nested.optional...)
		}
	}
	return required, optional, nil
}

type nestedResolution struct {
	required, optional []Entry
}

func (c *Client) resolveNamedCollection(ctx context.Context, name string, seen map[string]bool) (*nestedResolution, error) {
	refs, err := List(c.configPath)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if ref.Name != name {
			continue
		}
		def, err := c.fetchDefinition(ctx, ref.URL)
		if err != nil {
			return nil, err
		}
		req, opt, err := c.resolveDefinition(ctx, def, seen)
		if err != nil {
			return nil, err
		}
		return &nestedResolution{required: req, optional: opt}, nil
	}
	return nil, liberrors.New(liberrors.NotFound, fmt.Sprintf("collection %q is not configured", name), nil)
}

func (c *Client) fetchDefinition(ctx context.Context, source string) (*Definition, error) {
	var data []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, liberrors.Wrap(liberrors.Transport, err)
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, liberrors.Wrap(liberrors.Transport, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, liberrors.New(liberrors.Transport, fmt.Sprintf("fetching %s: status %s", source, resp.Status), nil)
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, liberrors.Wrap(liberrors.Transport, err)
		}
	} else {
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, liberrors.New(liberrors.NotFound, fmt.Sprintf("reading collection definition %s", source), err)
		}
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, liberrors.New(liberrors.InvalidFormat, fmt.Sprintf("decoding collection definition from %s", source), err)
	}
	return &def, nil
}

// resolverAdapter satisfies pack.CollectionResolver by translating
// between the Collection Client's Entry type and the Pack Manager's
// narrower ResolvedEntry type, so internal/pack never needs to import
// this package.
type resolverAdapter struct {
	client *Client
}

// AsPackResolver returns an adapter satisfying pack.CollectionResolver.
func (c *Client) AsPackResolver() pack.CollectionResolver {
	return &resolverAdapter{client: c}
}

func (r *resolverAdapter) ResolveCollection(ctx context.Context, source string) ([]pack.ResolvedEntry, []pack.ResolvedEntry, error) {
	required, optional, err := r.client.ResolveCollection(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	return toResolvedEntries(required, true), toResolvedEntries(optional, false), nil
}

func (r *resolverAdapter) Download(ctx context.Context, entry pack.ResolvedEntry, destPath string, opts pack.DownloadOptions) error {
	var onProgress ProgressFunc
	if opts.OnProgress != nil {
		onProgress = func(p Progress) { opts.OnProgress(p.Downloaded, p.Total) }
	}
	return r.client.Download(ctx, Entry{
		Name: entry.Name,
		Version: Version{
			Version:     entry.Version,
			DownloadURL: entry.DownloadURL,
			ContentHash: entry.ContentHash,
		},
	}, destPath, DownloadOptions{SkipHashVerify: !opts.VerifyHash, OnProgress: onProgress})
}

func toResolvedEntries(entries []Entry, required bool) []pack.ResolvedEntry {
	out := make([]pack.ResolvedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, pack.ResolvedEntry{
			Name:        e.Name,
			Version:     e.Version.Version,
			DownloadURL: e.DownloadURL,
			ContentHash: e.ContentHash,
			Required:    required,
		})
	}
	return out
}
