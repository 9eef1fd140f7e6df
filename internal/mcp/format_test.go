package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/libragen/libragen/internal/search"
	"github.com/libragen/libragen/internal/store"
)

func TestFormatSearchResults_Empty(t *testing.T) {
	out := FormatSearchResults("foo", nil)
	assert.Contains(t, out, "No results found")
	assert.Contains(t, out, "foo")
}

func TestFormatSearchResults_IncludesLibraryAndLocation(t *testing.T) {
	results := []LibraryResult{
		{Library: "widgets", Result: search.Result{
			SourceFile: "main.go", StartLine: 1, EndLine: 5, Score: 0.87,
			Content: "func Main() {}", Language: "go",
		}},
	}
	out := FormatSearchResults("Main", results)
	assert.Contains(t, out, "[widgets]")
	assert.Contains(t, out, "main.go:1-5")
	assert.Contains(t, out, "func Main() {}")
	assert.Contains(t, out, "```go")
}

func TestFormatSearchResults_PluralizesResultCount(t *testing.T) {
	results := []LibraryResult{
		{Library: "a", Result: search.Result{SourceFile: "x.go"}},
		{Library: "b", Result: search.Result{SourceFile: "y.go"}},
	}
	out := FormatSearchResults("q", results)
	assert.Contains(t, out, "Found 2 results")
}

func TestFormatSearchResults_SingularResultCount(t *testing.T) {
	results := []LibraryResult{{Library: "a", Result: search.Result{SourceFile: "x.go"}}}
	out := FormatSearchResults("q", results)
	assert.Contains(t, out, "Found 1 result\n")
}

func TestFormatSearchResults_IncludesContext(t *testing.T) {
	results := []LibraryResult{
		{Library: "widgets", Result: search.Result{
			SourceFile: "main.go", Content: "func B() {}", Language: "go",
			ContextBefore: []store.Chunk{{Content: "func A() {}"}},
			ContextAfter:  []store.Chunk{{Content: "func C() {}"}},
		}},
	}
	out := FormatSearchResults("q", results)
	assert.Contains(t, out, "func A() {}")
	assert.Contains(t, out, "func B() {}")
	assert.Contains(t, out, "func C() {}")
}

func TestClampLimit_UsesDefaultWhenZero(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0, 10, 1, 50))
}

func TestClampLimit_ClampsToMax(t *testing.T) {
	assert.Equal(t, 50, clampLimit(1000, 10, 1, 50))
}

func TestClampLimit_ClampsToMin(t *testing.T) {
	assert.Equal(t, 5, clampLimit(2, 10, 5, 50))
}
