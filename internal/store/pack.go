package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no cgo

	liberrors "github.com/libragen/libragen/internal/errors"
)

// hnswThreshold is the chunk count above which Pack lazily builds an
// in-memory ANN index instead of always scanning exactly. Below this,
// exact cosine scan is fast enough and is always used, matching the
// requirement that small packs default to exact search.
const hnswThreshold = 100_000

// Pack is the single-file pack store: sources, chunks (with inline
// embeddings), an FTS5 lexical index over chunk content, and a
// key/value library_meta table, all in one SQLite file.
type Pack struct {
	mu       sync.RWMutex
	db       *sql.DB
	path     string
	readOnly bool
	closed   bool

	stopWords map[string]struct{}

	annMu  sync.Mutex
	ann    *annIndex // built lazily on first VectorSearch if chunk count warrants it
	annErr error
}

// Open opens (and, if missing, creates the file for) a pack at path.
func Open(path string, opts OpenOptions) (*Pack, error) {
	dsn := path
	if opts.ReadOnly {
		dsn += "?mode=ro&_pragma=busy_timeout(5000)"
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, liberrors.Wrap(liberrors.Internal, err)
			}
		}
		dsn += "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, liberrors.Wrap(liberrors.InvalidFormat, err)
	}

	if !opts.ReadOnly {
		db.SetMaxOpenConns(1) // single writer per pack file
	}
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, liberrors.Wrap(liberrors.InvalidFormat, err)
		}
	}

	p := &Pack{
		db:        db,
		path:      path,
		readOnly:  opts.ReadOnly,
		stopWords: BuildStopWordMap(DefaultCodeStopWords),
	}
	return p, nil
}

// Initialize creates the schema at CurrentSchemaVersion. Safe to call on
// an already-initialized pack (idempotent via IF NOT EXISTS).
func (p *Pack) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	const schema = `
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		relative_path TEXT NOT NULL,
		language TEXT,
		size INTEGER NOT NULL,
		modified_at TEXT NOT NULL,
		content_hash TEXT
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER NOT NULL REFERENCES sources(id),
		content TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		content_version TEXT,
		ordinal INTEGER NOT NULL,
		embedding BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id, ordinal);
	CREATE INDEX IF NOT EXISTS idx_chunks_content_version ON chunks(content_version);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		content,
		tokenize='unicode61'
	);

	CREATE TABLE IF NOT EXISTS library_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}

	var version string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM library_meta WHERE key = 'schema_version'`).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = p.db.ExecContext(ctx,
			`INSERT INTO library_meta(key, value) VALUES ('schema_version', ?)`,
			fmt.Sprintf("%d", CurrentSchemaVersion))
		if err != nil {
			return liberrors.Wrap(liberrors.Internal, err)
		}
	} else if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	return nil
}

// AddSource inserts a source row and returns its assigned id.
func (p *Pack) AddSource(ctx context.Context, s Source) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.db.ExecContext(ctx,
		`INSERT INTO sources(path, relative_path, language, size, modified_at, content_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.Path, s.RelativePath, s.Language, s.Size, s.ModifiedAt.Format(time.RFC3339), s.ContentHash)
	if err != nil {
		return 0, liberrors.Wrap(liberrors.Internal, err)
	}
	return res.LastInsertId()
}

// AddChunks inserts chunks for a single source transactionally, keeping
// chunks and chunks_fts in agreement, and assigns monotonically increasing
// ids that reflect insertion order.
func (p *Pack) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	defer func() { _ = tx.Rollback() }()

	insertChunk, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks(source_id, content, start_line, end_line, content_version, ordinal, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	defer insertChunk.Close()

	insertFTS, err := tx.PrepareContext(ctx, `INSERT INTO chunks_fts(rowid, content) VALUES (?, ?)`)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	defer insertFTS.Close()

	for _, c := range chunks {
		blob := encodeEmbedding(c.Embedding)
		res, err := insertChunk.ExecContext(ctx, c.SourceID, c.Content, c.StartLine, c.EndLine, c.ContentVersion, c.Ordinal, blob)
		if err != nil {
			return liberrors.Wrap(liberrors.Internal, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return liberrors.Wrap(liberrors.Internal, err)
		}
		tokens := FilterStopWords(TokenizeCode(c.Content), p.stopWords)
		if _, err := insertFTS.ExecContext(ctx, id, strings.Join(tokens, " ")); err != nil {
			return liberrors.Wrap(liberrors.Internal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	p.invalidateANN()
	return nil
}

// GetChunk fetches a single chunk by id.
func (p *Pack) GetChunk(ctx context.Context, id int64) (*Chunk, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	row := p.db.QueryRowContext(ctx, `
		SELECT c.id, c.source_id, c.content, c.start_line, c.end_line, c.content_version, c.ordinal, c.embedding,
		       s.relative_path, s.language
		FROM chunks c JOIN sources s ON s.id = c.source_id
		WHERE c.id = ?`, id)
	return scanChunk(row)
}

// GetNeighbors fetches up to `before` chunks with ordinal < ordinal and
// up to `after` chunks with ordinal > ordinal from the same source, in
// source order.
func (p *Pack) GetNeighbors(ctx context.Context, sourceID int64, ordinal, before, after int) (prior []Chunk, following []Chunk, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if before > 0 {
		rows, err := p.db.QueryContext(ctx, `
			SELECT c.id, c.source_id, c.content, c.start_line, c.end_line, c.content_version, c.ordinal, c.embedding,
			       s.relative_path, s.language
			FROM chunks c JOIN sources s ON s.id = c.source_id
			WHERE c.source_id = ? AND c.ordinal < ?
			ORDER BY c.ordinal DESC LIMIT ?`, sourceID, ordinal, before)
		if err != nil {
			return nil, nil, liberrors.Wrap(liberrors.Internal, err)
		}
		prior, err = scanChunks(rows)
		if err != nil {
			return nil, nil, err
		}
		// reverse to restore ascending source order
		for i, j := 0, len(prior)-1; i < j; i, j = i+1, j-1 {
			prior[i], prior[j] = prior[j], prior[i]
		}
	}

	if after > 0 {
		rows, err := p.db.QueryContext(ctx, `
			SELECT c.id, c.source_id, c.content, c.start_line, c.end_line, c.content_version, c.ordinal, c.embedding,
			       s.relative_path, s.language
			FROM chunks c JOIN sources s ON s.id = c.source_id
			WHERE c.source_id = ? AND c.ordinal > ?
			ORDER BY c.ordinal ASC LIMIT ?`, sourceID, ordinal, after)
		if err != nil {
			return nil, nil, liberrors.Wrap(liberrors.Internal, err)
		}
		following, err = scanChunks(rows)
		if err != nil {
			return nil, nil, err
		}
	}
	return prior, following, nil
}

// CountChunks returns the number of chunks currently in the pack.
func (p *Pack) CountChunks(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, liberrors.Wrap(liberrors.Internal, err)
	}
	return n, nil
}

// CountSources returns the number of sources currently in the pack.
func (p *Pack) CountSources(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&n); err != nil {
		return 0, liberrors.Wrap(liberrors.Internal, err)
	}
	return n, nil
}

// SetMetadata writes a library_meta key/value pair.
func (p *Pack) SetMetadata(ctx context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO library_meta(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	return nil
}

// GetMetadata reads a library_meta value; ok is false if the key is unset.
func (p *Pack) GetMetadata(ctx context.Context, key string) (value string, ok bool, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	row := p.db.QueryRowContext(ctx, `SELECT value FROM library_meta WHERE key = ?`, key)
	if scanErr := row.Scan(&value); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, liberrors.Wrap(liberrors.Internal, scanErr)
	}
	return value, true, nil
}

// SchemaVersion returns library_meta["schema_version"], or 0 if absent.
func (p *Pack) SchemaVersion(ctx context.Context) (int, error) {
	v, ok, err := p.GetMetadata(ctx, "schema_version")
	if err != nil || !ok {
		return 0, err
	}
	var n int
	_, scanErr := fmt.Sscanf(v, "%d", &n)
	return n, scanErr
}

// IterateChunksAscending streams every chunk ordered by id ascending,
// calling fn for each. Used by content-hash computation.
func (p *Pack) IterateChunksAscending(ctx context.Context, fn func(Chunk) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.source_id, c.content, c.start_line, c.end_line, c.content_version, c.ordinal, c.embedding,
		       s.relative_path, s.language
		FROM chunks c JOIN sources s ON s.id = c.source_id
		ORDER BY c.id ASC`)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return err
		}
		if err := fn(*c); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the underlying database handle. Idempotent.
func (p *Pack) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if !p.readOnly {
		_, _ = p.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return p.db.Close()
}

// Path returns the pack's file path.
func (p *Pack) Path() string { return p.path }

func (p *Pack) invalidateANN() {
	p.annMu.Lock()
	p.ann = nil
	p.annErr = nil
	p.annMu.Unlock()
}

func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(blob []byte) []float32 {
	n := len(blob) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*Chunk, error) {
	return scanChunkRows(row)
}

func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanChunkRows(row rowScanner) (*Chunk, error) {
	var c Chunk
	var contentVersion sql.NullString
	var blob []byte
	var sourceFile, language sql.NullString
	err := row.Scan(&c.ID, &c.SourceID, &c.Content, &c.StartLine, &c.EndLine, &contentVersion, &c.Ordinal, &blob, &sourceFile, &language)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, liberrors.New(liberrors.NotFound, "chunk not found", err)
		}
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	c.ContentVersion = contentVersion.String
	c.Embedding = decodeEmbedding(blob)
	c.SourceFile = sourceFile.String
	c.Language = language.String
	return &c, nil
}
