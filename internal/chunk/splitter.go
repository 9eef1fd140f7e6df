package chunk

import (
	"bytes"
	"context"
)

// DefaultChunkSize and DefaultChunkOverlap are the splitter's defaults,
// expressed in characters (bytes), not tokens.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// preferredSeparators is tried in order when looking for a break point
// inside the search window; "" means a hard cut at the window boundary.
var preferredSeparators = []string{"\n\n", "\n", " ", ""}

// Piece is one output unit of Split: a content window plus the 1-indexed
// line range it spans in the original source.
type Piece struct {
	Content   string
	StartLine int
	EndLine   int
}

// Options configures a Splitter.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = DefaultChunkOverlap
	}
	return o
}

// Splitter implements the recursive greedy splitter with exact overlap,
// optionally biasing break-point selection toward tree-sitter symbol
// boundaries when a grammar is registered for the content's language.
type Splitter struct {
	parser    *Parser
	extractor *SymbolExtractor
	registry  *LanguageRegistry
}

// NewSplitter creates a Splitter backed by the default language registry.
func NewSplitter() *Splitter {
	registry := DefaultRegistry()
	return &Splitter{
		parser:    NewParserWithRegistry(registry),
		extractor: NewSymbolExtractorWithRegistry(registry),
		registry:  registry,
	}
}

// Close releases the underlying tree-sitter parser.
func (s *Splitter) Close() {
	if s.parser != nil {
		s.parser.Close()
	}
}

// Split divides content into overlapping pieces of at most opts.ChunkSize
// bytes, overlapping successive windows by exactly opts.ChunkOverlap bytes
// at the best available break point. Empty or all-whitespace content
// produces no pieces.
func (s *Splitter) Split(ctx context.Context, content []byte, language string) []Piece {
	opts := Options{}.withDefaults()
	return s.split(ctx, content, language, opts)
}

// SplitWithOptions is Split with explicit chunk size/overlap.
func (s *Splitter) SplitWithOptions(ctx context.Context, content []byte, language string, opts Options) []Piece {
	return s.split(ctx, content, language, opts.withDefaults())
}

func (s *Splitter) split(ctx context.Context, content []byte, language string, opts Options) []Piece {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}

	symbolEnds := s.symbolBoundaries(ctx, content, language)

	var pieces []Piece
	pos := 0
	n := len(content)
	searchWindow := opts.ChunkOverlap * 2
	if searchWindow < 32 {
		searchWindow = 32
	}

	for pos < n {
		targetEnd := pos + opts.ChunkSize
		if targetEnd >= n {
			pieces = append(pieces, newPiece(content, pos, n))
			break
		}

		windowStart := targetEnd - searchWindow
		if windowStart < pos {
			windowStart = pos
		}
		end := bestBreak(content, windowStart, targetEnd, symbolEnds)
		if end <= pos {
			end = targetEnd
		}

		pieces = append(pieces, newPiece(content, pos, end))

		if end >= n {
			break
		}
		next := end - opts.ChunkOverlap
		if next <= pos {
			next = end
		}
		pos = next
	}

	return pieces
}

// symbolBoundaries parses content (best-effort; parse failures or
// unregistered languages simply yield no boundaries, falling back to the
// plain separator preference) and returns sorted symbol end-byte offsets.
func (s *Splitter) symbolBoundaries(ctx context.Context, content []byte, language string) []int {
	if language == "" {
		return nil
	}
	if _, ok := s.registry.GetByName(language); !ok {
		return nil
	}
	tree, err := s.parser.Parse(ctx, content, language)
	if err != nil || tree == nil {
		return nil
	}
	symbols := s.extractor.Extract(tree)
	ends := make([]int, 0, len(symbols))
	for _, sym := range symbols {
		ends = append(ends, int(sym.EndByte))
	}
	return ends
}

// bestBreak finds the preferred cut offset within [windowStart, windowEnd].
// A symbol boundary in range wins over generic separators; among generic
// separators, the order in preferredSeparators is tried in turn, taking
// the rightmost match so the resulting chunk is as close to chunkSize as
// possible; "" falls back to a hard cut at windowEnd.
func bestBreak(content []byte, windowStart, windowEnd int, symbolEnds []int) int {
	best := -1
	for _, b := range symbolEnds {
		if b >= windowStart && b <= windowEnd && b > best {
			best = b
		}
	}
	if best != -1 {
		return best
	}

	window := content[windowStart:windowEnd]
	for _, sep := range preferredSeparators {
		if sep == "" {
			return windowEnd
		}
		if idx := bytes.LastIndex(window, []byte(sep)); idx != -1 {
			return windowStart + idx + len(sep)
		}
	}
	return windowEnd
}

func newPiece(content []byte, start, end int) Piece {
	// A newline that ends the piece closes its last line; it does not
	// start another one.
	last := end
	if last > start && content[last-1] == '\n' {
		last--
	}
	return Piece{
		Content:   string(content[start:end]),
		StartLine: 1 + bytes.Count(content[:start], []byte{'\n'}),
		EndLine:   1 + bytes.Count(content[:last], []byte{'\n'}),
	}
}
