package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/libragen/libragen/internal/pack"
	"github.com/libragen/libragen/internal/search"
	"github.com/libragen/libragen/internal/update"
)

// ListInput takes no parameters.
type ListInput struct{}

// ListedPack describes one installed pack's manifest fields.
type ListedPack struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Description    string `json:"description"`
	ContentVersion string `json:"content_version"`
	Collection     string `json:"collection,omitempty"`
	ChunkCount     int    `json:"chunk_count"`
	SourceCount    int    `json:"source_count"`
}

// ListOutput lists every installed pack.
type ListOutput struct {
	Packs []ListedPack `json:"packs"`
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	records, err := s.manager.List(ctx)
	if err != nil {
		return nil, ListOutput{}, MapError(err)
	}

	out := ListOutput{Packs: make([]ListedPack, 0, len(records))}
	for _, r := range records {
		out.Packs = append(out.Packs, ListedPack{
			Name:           r.Name,
			Version:        r.Version,
			Description:    r.Manifest.Description,
			ContentVersion: r.Manifest.ContentVersion,
			Collection:     r.Manifest.Collection,
			ChunkCount:     r.Manifest.Stats.ChunkCount,
			SourceCount:    r.Manifest.Stats.SourceCount,
		})
	}
	return nil, out, nil
}

// SearchInput mirrors the search tool's documented parameters.
type SearchInput struct {
	Query          string   `json:"query"`
	Libraries      []string `json:"libraries,omitempty"`
	ContentVersion string   `json:"content_version,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
	HybridAlpha    float64  `json:"hybrid_alpha,omitempty"`
	ContextBefore  *int     `json:"context_before,omitempty"`
	ContextAfter   *int     `json:"context_after,omitempty"`
	Rerank         bool     `json:"rerank,omitempty"`
}

// SearchOutput is the aggregated, trimmed result set, plus a markdown
// rendering for hosts that display tool output as text.
type SearchOutput struct {
	Results  []LibraryResult `json:"results"`
	Markdown string          `json:"markdown"`
}

// handleSearch fans a single query out across every installed pack (or the
// subset named by Libraries), tags each hit with its source pack, and
// trims the globally sorted set down to top_k.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if in.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query is required")
	}

	records, err := s.manager.List(ctx)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}
	records = filterByLibraries(records, in.Libraries)
	if len(in.Libraries) > 0 && len(records) == 0 {
		return nil, SearchOutput{}, NewInvalidParamsError("none of the requested libraries are installed")
	}

	topK := clampLimit(in.TopK, search.DefaultK, 1, 100)
	alpha := in.HybridAlpha
	if alpha == 0 {
		alpha = search.DefaultHybridAlpha
	}
	// Omitted context fields default to one neighbor on each side.
	contextBefore, contextAfter := 1, 1
	if in.ContextBefore != nil {
		contextBefore = *in.ContextBefore
	}
	if in.ContextAfter != nil {
		contextAfter = *in.ContextAfter
	}

	query := search.Query{
		Text:           in.Query,
		K:              topK,
		HybridAlpha:    alpha,
		ContentVersion: in.ContentVersion,
		ContextBefore:  contextBefore,
		ContextAfter:   contextAfter,
		Rerank:         in.Rerank,
	}

	var all []LibraryResult
	for _, rec := range records {
		p, searcher, err := s.openSearcher(rec)
		if err != nil {
			s.logger.Warn("skipping pack that failed to open", "pack", rec.Name, "error", err)
			continue
		}
		results, err := searcher.Search(ctx, query)
		p.Close()
		if err != nil {
			s.logger.Warn("search failed for pack", "pack", rec.Name, "error", err)
			continue
		}
		for _, r := range results {
			all = append(all, LibraryResult{Library: rec.Name, Result: r})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > topK {
		all = all[:topK]
	}

	return nil, SearchOutput{Results: all, Markdown: FormatSearchResults(in.Query, all)}, nil
}

func filterByLibraries(records []pack.Record, libraries []string) []pack.Record {
	if len(libraries) == 0 {
		return records
	}
	want := make(map[string]bool, len(libraries))
	for _, l := range libraries {
		want[l] = true
	}
	var out []pack.Record
	for _, r := range records {
		if want[r.Name] {
			out = append(out, r)
		}
	}
	return out
}

// UninstallInput names the pack to remove.
type UninstallInput struct {
	Name string `json:"name"`
}

// UninstallOutput confirms removal.
type UninstallOutput struct {
	Removed bool `json:"removed"`
}

func (s *Server) handleUninstall(ctx context.Context, _ *mcp.CallToolRequest, in UninstallInput) (*mcp.CallToolResult, UninstallOutput, error) {
	if in.Name == "" {
		return nil, UninstallOutput{}, NewInvalidParamsError("name is required")
	}
	if err := s.manager.Uninstall(ctx, in.Name, pack.UninstallOptions{}); err != nil {
		return nil, UninstallOutput{}, MapError(err)
	}
	return nil, UninstallOutput{Removed: true}, nil
}

// UpdateInput optionally restricts update to one pack and controls whether
// candidates are only listed or actually applied.
type UpdateInput struct {
	Name   string `json:"name,omitempty"`
	Force  bool   `json:"force,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// UpdateResult reports one pack's update outcome.
type UpdateResult struct {
	Name           string `json:"name"`
	CurrentVersion string `json:"current_version"`
	NewVersion     string `json:"new_version"`
	Applied        bool   `json:"applied"`
	Error          string `json:"error,omitempty"`
}

// UpdateOutput lists every candidate considered.
type UpdateOutput struct {
	Updates []UpdateResult `json:"updates"`
}

// handleUpdate finds update candidates among packs with a collection
// origin and, unless DryRun is set, applies them immediately.
func (s *Server) handleUpdate(ctx context.Context, _ *mcp.CallToolRequest, in UpdateInput) (*mcp.CallToolResult, UpdateOutput, error) {
	if s.client == nil {
		return nil, UpdateOutput{}, nil
	}

	records, err := s.manager.List(ctx)
	if err != nil {
		return nil, UpdateOutput{}, MapError(err)
	}
	if in.Name != "" {
		records = filterByLibraries(records, []string{in.Name})
		if len(records) == 0 {
			return nil, UpdateOutput{}, NewInvalidParamsError(fmt.Sprintf("pack %q is not installed", in.Name))
		}
	}

	candidates, err := update.FindUpdates(ctx, installedFromRecords(records), s.client, update.FindOptions{Force: in.Force})
	if err != nil {
		return nil, UpdateOutput{}, MapError(err)
	}

	out := UpdateOutput{Updates: make([]UpdateResult, 0, len(candidates))}
	for _, c := range candidates {
		res := UpdateResult{Name: c.Name, CurrentVersion: c.CurrentVersion, NewVersion: c.NewVersion}
		if !in.DryRun {
			if err := update.PerformUpdate(ctx, c, s.manager, s.client); err != nil {
				res.Error = err.Error()
			} else {
				res.Applied = true
			}
		}
		out.Updates = append(out.Updates, res)
	}
	return nil, out, nil
}
