// Package store implements the pack format: a single SQLite file holding
// sources, chunks (with inline vector embeddings), an FTS5 lexical index,
// and a key/value manifest table.
package store

import "time"

// CurrentSchemaVersion is the schema version this build writes and can
// migrate up to. library_meta["schema_version"] absent from a pack means 0.
const CurrentSchemaVersion = 1

// Source is one ingested file.
type Source struct {
	ID           int64
	Path         string
	RelativePath string
	Language     string
	Size         int64
	ModifiedAt   time.Time
	ContentHash  string
}

// Chunk is one indexable unit belonging to a Source.
type Chunk struct {
	ID             int64
	SourceID       int64
	Content        string
	StartLine      int
	EndLine        int
	ContentVersion string
	Ordinal        int // position among chunks of the same source, insertion order
	Embedding      []float32

	// Populated by search/neighbor lookups for caller convenience; not stored directly.
	SourceFile string
	Language   string
}

// Manifest is the structured record stored under library_meta["manifest"].
type Manifest struct {
	Name               string    `yaml:"name" json:"name"`
	Version            string    `yaml:"version" json:"version"`
	DisplayName        string    `yaml:"display_name" json:"display_name"`
	Description        string    `yaml:"description" json:"description"`
	AgentDescription   string    `yaml:"agent_description" json:"agent_description"`
	ExampleQueries     []string  `yaml:"example_queries" json:"example_queries"`
	Keywords           []string  `yaml:"keywords" json:"keywords"`
	ProgrammingLangs   []string  `yaml:"programming_languages" json:"programming_languages"`
	TextLanguages      []string  `yaml:"text_languages" json:"text_languages"`
	Frameworks         []string  `yaml:"frameworks" json:"frameworks"`
	Licenses           []string  `yaml:"licenses" json:"licenses"`
	Author             string    `yaml:"author" json:"author"`
	Repository         string    `yaml:"repository" json:"repository"`
	Origin             string    `yaml:"origin" json:"origin"`
	CreatedAt          time.Time `yaml:"created_at" json:"created_at"`
	Embedding          EmbeddingInfo `yaml:"embedding" json:"embedding"`
	Chunking           ChunkingInfo  `yaml:"chunking" json:"chunking"`
	Stats              Stats         `yaml:"stats" json:"stats"`
	ContentVersion     string    `yaml:"content_version" json:"content_version"`
	ContentVersionType string    `yaml:"content_version_type" json:"content_version_type"`
	ContentHash        string    `yaml:"content_hash" json:"content_hash"`

	// Source collection, when this pack was installed as part of a collection.
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	// Unknown fields preserved verbatim for forward compatibility with
	// manifests written by a newer engine version.
	Extra map[string]any `yaml:"-" json:"-"`
}

// EmbeddingInfo describes the model that produced a pack's vectors.
type EmbeddingInfo struct {
	Model        string `yaml:"model" json:"model"`
	Dimensions   int    `yaml:"dimensions" json:"dimensions"`
	Quantization string `yaml:"quantization" json:"quantization"`
}

// ChunkingInfo describes the strategy used to produce a pack's chunks.
type ChunkingInfo struct {
	Strategy     string `yaml:"strategy" json:"strategy"`
	ChunkSize    int    `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap" json:"chunk_overlap"`
}

// Stats holds size/count metadata updated during finalize.
type Stats struct {
	ChunkCount  int   `yaml:"chunk_count" json:"chunk_count"`
	SourceCount int   `yaml:"source_count" json:"source_count"`
	FileSize    int64 `yaml:"file_size" json:"file_size"`
}

// SearchFilters narrows VectorSearch/KeywordSearch results.
type SearchFilters struct {
	ContentVersion string
	SourceGlob     string
}

// OpenOptions controls how Open behaves.
type OpenOptions struct {
	ReadOnly bool
}

// ScoredChunk is one hit from VectorSearch or KeywordSearch.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
