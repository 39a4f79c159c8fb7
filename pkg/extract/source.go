package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// DefaultMaxFileSize is the size above which a file is hashed but not read.
const DefaultMaxFileSize = 1 << 20

// SourceOptions configures the source tree scan.
type SourceOptions struct {
	// Exclude lists slash-separated globs (e.g. "**/*.snap") matched against
	// paths relative to the crate root. Matching files are skipped.
	Exclude []string

	// MaxFileSize bounds how much of a file is read for line and item
	// counts. Zero uses DefaultMaxFileSize.
	MaxFileSize int64
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (o SourceOptions) WithDefaults() SourceOptions {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	return o
}

type scanner struct {
	exclude []glob.Glob
	maxSize int64
}

func newScanner(opts SourceOptions) (*scanner, error) {
	opts = opts.WithDefaults()
	s := &scanner{maxSize: opts.MaxFileSize}
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		s.exclude = append(s.exclude, g)
	}
	return s, nil
}

// filter decides which paths of one crate belong to its source tree.
type filter struct {
	gitignore *ignore.GitIgnore
	include   *ignore.GitIgnore // package.include, nil when unset
	exclude   *ignore.GitIgnore // package.exclude, ignored when include is set
	globs     []glob.Glob
}

func (s *scanner) filterFor(t Target) *filter {
	f := &filter{globs: s.exclude}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(t.Dir, ".gitignore")); err == nil {
		f.gitignore = gi
	}
	if len(t.Include) > 0 {
		f.include = ignore.CompileIgnoreLines(t.Include...)
	} else if len(t.Exclude) > 0 {
		f.exclude = ignore.CompileIgnoreLines(t.Exclude...)
	}
	return f
}

func (f *filter) skipDir(rel string) bool {
	dir := rel + "/"
	if f.gitignore != nil && f.gitignore.MatchesPath(dir) {
		return true
	}
	return f.exclude != nil && f.exclude.MatchesPath(dir)
}

func (f *filter) skipFile(rel string) bool {
	if f.gitignore != nil && f.gitignore.MatchesPath(rel) {
		return true
	}
	if f.include != nil && !f.include.MatchesPath(rel) {
		return true
	}
	if f.exclude != nil && f.exclude.MatchesPath(rel) {
		return true
	}
	for _, g := range f.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// rows walks the crate directory and describes every file of its source
// tree in lexical path order. Nested packages, the build output directory and
// VCS metadata are not part of the tree.
func (s *scanner) rows(ctx context.Context, t Target) ([]schema.Row, error) {
	f := s.filterFor(t)

	var files []string
	err := filepath.WalkDir(t.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(t.Dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		// Parquet strings are UTF-8; names that are not cannot be recorded.
		if !utf8.ValidString(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			switch {
			case d.Name() == ".git":
				return fs.SkipDir
			case rel == "target":
				return fs.SkipDir
			case isPackageDir(p):
				return fs.SkipDir
			case f.skipDir(rel):
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || f.skipFile(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", t.Dir, err)
	}
	sort.Strings(files)

	rows := make([]schema.Row, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := s.describe(t, rel)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isPackageDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "Cargo.toml"))
	return err == nil
}

func (s *scanner) describe(t Target, rel string) (schema.SourceFileRow, error) {
	row := schema.SourceFileRow{
		TargetName:    t.Name,
		TargetVersion: t.Version,
		Path:          rel,
		Language:      languageOf(rel),
	}

	file, err := os.Open(filepath.Join(t.Dir, filepath.FromSlash(rel)))
	if err != nil {
		return row, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return row, err
	}
	row.SizeBytes = info.Size()

	if info.Size() > s.maxSize {
		h := sha256.New()
		if _, err := io.Copy(h, file); err != nil {
			return row, fmt.Errorf("hash %s: %w", rel, err)
		}
		row.ContentHash = hex.EncodeToString(h.Sum(nil))
		return row, nil
	}

	src, err := io.ReadAll(file)
	if err != nil {
		return row, fmt.Errorf("read %s: %w", rel, err)
	}
	sum := sha256.Sum256(src)
	row.ContentHash = hex.EncodeToString(sum[:])

	if isBinary(src) {
		return row, nil
	}
	var lc lineCounts
	if row.Language == "rust" {
		var items itemCounts
		items, lc, err = analyzeRust(src)
		if err != nil {
			return row, fmt.Errorf("parse %s: %w", rel, err)
		}
		row.Functions = items.functions
		row.Structs = items.structs
		row.Enums = items.enums
		row.Traits = items.traits
		row.Impls = items.impls
	} else {
		lc = countLines(src, syntaxOf(row.Language))
	}
	row.TotalLines = lc.total()
	row.CodeLines = lc.code
	row.CommentLines = lc.comment
	row.BlankLines = lc.blank
	return row, nil
}

var languages = map[string]string{
	".rs":    "rust",
	".toml":  "toml",
	".md":    "markdown",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".s":     "assembly",
	".S":     "assembly",
	".py":    "python",
	".sh":    "shell",
	".js":    "javascript",
	".ts":    "typescript",
	".json":  "json",
	".yml":   "yaml",
	".yaml":  "yaml",
	".html":  "html",
	".css":   "css",
	".proto": "protobuf",
	".txt":   "text",
	".lock":  "lockfile",
}

var wellKnown = map[string]string{
	"Cargo.lock": "toml",
	"Makefile":   "makefile",
	"LICENSE":    "text",
	"COPYING":    "text",
}

// languageOf infers a language from the file name; unknown files are
// "other".
func languageOf(rel string) string {
	base := path.Base(rel)
	if lang, ok := wellKnown[base]; ok {
		return lang
	}
	if lang, ok := languages[path.Ext(base)]; ok {
		return lang
	}
	return "other"
}
