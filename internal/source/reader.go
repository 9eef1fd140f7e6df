package source

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	liberrors "github.com/libragen/libragen/internal/errors"
	"github.com/libragen/libragen/internal/gitignore"
)

// gitignoreCacheSize bounds the per-directory matcher cache.
const gitignoreCacheSize = 1000

// Reader discovers and reads indexable files under one or more roots.
type Reader struct {
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	cacheMu        sync.RWMutex
}

// New creates a Reader.
func New() (*Reader, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	return &Reader{gitignoreCache: cache}, nil
}

// Scan streams matching files from opts.Roots on a channel, closed when
// every root has been walked or ctx is canceled.
func (r *Reader) Scan(ctx context.Context, opts Options) (<-chan Result, error) {
	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	results := make(chan Result, 64)
	go func() {
		defer close(results)
		for _, root := range opts.Roots {
			absRoot, err := filepath.Abs(root)
			if err != nil {
				continue
			}
			if _, err := os.Stat(absRoot); err != nil {
				continue // nonexistent roots are skipped without error
			}
			r.scanRoot(ctx, absRoot, opts, maxFileSize, results)
		}
	}()
	return results, nil
}

func (r *Reader) scanRoot(ctx context.Context, absRoot string, opts Options, maxFileSize int64, results chan<- Result) {
	_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}

		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || relPath == "." {
			return nil
		}

		if d.IsDir() {
			if r.shouldExcludeDir(relPath, opts) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}
		if r.shouldExcludeFile(relPath, absRoot, opts) {
			return nil
		}
		if len(opts.Patterns) > 0 && !matchesAnyPattern(relPath, opts.Patterns) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxFileSize {
			return nil
		}
		if isBinaryFile(path) {
			return nil
		}
		if isGeneratedFile(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		entry := &Entry{
			Path:         path,
			RelativePath: relPath,
			Content:      content,
			Size:         info.Size(),
			ModifiedAt:   info.ModTime(),
			Language:     DetectLanguage(relPath),
		}

		select {
		case results <- Result{Entry: entry}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

func (r *Reader) shouldExcludeDir(relPath string, opts Options) bool {
	for _, pattern := range defaultExcludeDirs {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.Ignore {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	return false
}

func (r *Reader) shouldExcludeFile(relPath, absRoot string, opts Options) bool {
	base := filepath.Base(relPath)

	for _, pattern := range sensitiveFilePatterns {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range defaultExcludeFiles {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.Ignore {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	if opts.RespectGitignore && r.isGitignored(relPath, absRoot) {
		return true
	}
	return false
}

func (r *Reader) isGitignored(relPath, absRoot string) bool {
	rootMatcher := r.getGitignoreMatcher(absRoot, "")
	if rootMatcher != nil && rootMatcher.Match(relPath, false) {
		return true
	}

	parts := strings.Split(filepath.Dir(relPath), string(filepath.Separator))
	currentDir := absRoot
	currentBase := ""
	for _, part := range parts {
		if part == "." {
			continue
		}
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = filepath.Join(currentBase, part)
		}
		matcher := r.getGitignoreMatcher(currentDir, currentBase)
		if matcher != nil && matcher.Match(relPath, false) {
			return true
		}
	}
	return false
}

func (r *Reader) getGitignoreMatcher(dir, base string) *gitignore.Matcher {
	r.cacheMu.RLock()
	matcher, ok := r.gitignoreCache.Get(dir)
	r.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		return nil
	}
	matcher = gitignore.New()
	if err := matcher.AddFromFile(gitignorePath, base); err != nil {
		return nil
	}

	r.cacheMu.Lock()
	r.gitignoreCache.Add(dir, matcher)
	r.cacheMu.Unlock()
	return matcher
}

// InvalidateGitignoreCache drops all cached matchers, forcing a re-parse
// of .gitignore files on next use.
func (r *Reader) InvalidateGitignoreCache() {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	r.gitignoreCache.Purge()
}

func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}

var generatedMarkers = []string{
	"// Code generated",
	"// DO NOT EDIT",
	"/* DO NOT EDIT",
	"# Generated by",
	"<!-- AUTO-GENERATED -->",
	"// Generated by",
	"/* Generated by",
}

func isGeneratedFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	content := string(buf[:n])
	for _, marker := range generatedMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

var defaultExcludeDirs = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/.aws/**",
	"**/.gcp/**",
	"**/.azure/**",
	"**/.ssh/**",
}

var defaultExcludeFiles = []string{
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

var sensitiveFilePatterns = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*credentials*",
	"*secrets*",
	"*password*",
	".netrc",
	".npmrc",
	".pypirc",
	"id_rsa",
	"id_dsa",
	"id_ecdsa",
	"id_ed25519",
}

func matchDirPattern(relPath, pattern string) bool {
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		suffix = strings.TrimSuffix(suffix, "/**")
		for _, part := range strings.Split(relPath, string(filepath.Separator)) {
			if part == suffix {
				return true
			}
		}
		return false
	}
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return relPath == prefix || strings.HasPrefix(relPath, prefix+string(filepath.Separator))
	}
	return relPath == pattern || strings.HasPrefix(relPath, pattern+string(filepath.Separator))
}

func matchFilePattern(baseName, relPath, pattern string) bool {
	if strings.HasSuffix(pattern, "/**") && !strings.HasPrefix(pattern, "**/") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(relPath, prefix+string(filepath.Separator))
	}

	if strings.Contains(pattern, string(filepath.Separator)) && strings.Contains(pattern, "*") && !strings.HasPrefix(pattern, "**/") {
		dir := filepath.Dir(pattern)
		filePattern := filepath.Base(pattern)
		relDir := filepath.Dir(relPath)
		if relDir == dir {
			matched, err := filepath.Match(filePattern, baseName)
			if err == nil && matched {
				return true
			}
		}
		return false
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if strings.HasPrefix(suffix, "*.") {
			ext := strings.TrimPrefix(suffix, "*")
			return strings.HasSuffix(baseName, ext)
		}
		parts := strings.Split(relPath, string(filepath.Separator))
		for i, part := range parts {
			if part == suffix || (i < len(parts)-1 && matchDirPattern(strings.Join(parts[:i+1], string(filepath.Separator)), pattern)) {
				return true
			}
		}
		return false
	}

	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1 {
		middle := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")
		return strings.Contains(strings.ToLower(baseName), strings.ToLower(middle))
	}

	if strings.HasSuffix(pattern, "*") && strings.HasPrefix(pattern, ".") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(baseName, prefix)
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(baseName, strings.TrimPrefix(pattern, "*"))
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(baseName, strings.TrimSuffix(pattern, "*"))
	}
	return baseName == pattern
}

func matchesAnyPattern(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range patterns {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	return false
}
