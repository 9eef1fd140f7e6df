package mcp

import (
	"fmt"
	"strings"

	"github.com/libragen/libragen/internal/search"
)

// LibraryResult pairs a search.Result with the installed pack it came
// from, for aggregated multi-pack formatting.
type LibraryResult struct {
	Library string
	search.Result
}

// FormatSearchResults formats aggregated results across one or more
// packs as markdown.
func FormatSearchResults(query string, results []LibraryResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for %q\n\n", query)
	fmt.Fprintf(&sb, "Found %d result%s\n\n", len(results), plural(len(results)))

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, num int, r LibraryResult) {
	fmt.Fprintf(sb, "### %d. [%s] %s:%d-%d (score: %.3f)\n\n",
		num, r.Library, r.SourceFile, r.StartLine, r.EndLine, r.Score)

	lang := r.Language
	if lang == "" {
		lang = "text"
	}

	for _, ctx := range r.ContextBefore {
		fmt.Fprintf(sb, "```%s\n%s\n```\n", lang, ctx.Content)
	}
	fmt.Fprintf(sb, "```%s\n%s\n```\n", lang, r.Content)
	for _, ctx := range r.ContextAfter {
		fmt.Fprintf(sb, "```%s\n%s\n```\n", lang, ctx.Content)
	}
	sb.WriteString("\n")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
