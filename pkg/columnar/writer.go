package columnar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/observability"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// DefaultBatchSize is the number of rows buffered per row group.
const DefaultBatchSize = 1024

// Options configures a Writer.
type Options struct {
	// BatchSize bounds the rows buffered per phase before a row group is
	// flushed. Zero uses DefaultBatchSize.
	BatchSize int

	// Compression names the page codec: snappy (default), zstd, gzip or none.
	Compression string

	// Logger receives debug messages. Nil discards them.
	Logger func(string, ...any)

	// Hooks observe file completion. Nil uses the global pipeline hooks.
	Hooks observability.PipelineHooks
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Compression == "" {
		o.Compression = "snappy"
	}
	if o.Logger == nil {
		o.Logger = func(string, ...any) {}
	}
	if o.Hooks == nil {
		o.Hooks = observability.Pipeline()
	}
	return o
}

// ParseCompression maps a codec name to its parquet codec.
func ParseCompression(name string) (compress.Codec, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return &parquet.Snappy, nil
	case "zstd":
		return &parquet.Zstd, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "none", "uncompressed":
		return &parquet.Uncompressed, nil
	}
	return nil, errs.New(errs.ErrCodeConfiguration, "unknown compression %q", name)
}

// Writer owns one parquet file per phase. Each file is written by a single
// goroutine; producers hand rows off through Write and never touch the file.
//
// Files are written under a temporary name and renamed into place by Close,
// so an existing <phase>.parquet is replaced only once its successor is
// complete. Abort discards the temporary files instead.
type Writer struct {
	dir   string
	opts  Options
	codec compress.Codec

	mu     sync.Mutex
	sinks  map[schema.Phase]*phaseSink
	order  []schema.Phase
	closed bool
}

// New returns a writer for dir. Nothing is created until Open.
func New(dir string, opts Options) (*Writer, error) {
	opts = opts.WithDefaults()
	codec, err := ParseCompression(opts.Compression)
	if err != nil {
		return nil, err
	}
	return &Writer{dir: dir, opts: opts, codec: codec, sinks: make(map[schema.Phase]*phaseSink)}, nil
}

// Open creates the output directory and one file per phase, and starts the
// phase writer goroutines. A phase file is produced for every opened phase,
// even if no rows are written to it.
func (w *Writer) Open(phases []schema.Phase) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errs.New(errs.ErrCodeWrite, "writer is closed")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errs.Wrap(errs.ErrCodeWrite, err, "create output directory %s", w.dir)
	}
	for _, p := range phases {
		if _, ok := w.sinks[p]; ok {
			continue
		}
		t := schema.Lookup(p)
		if t == nil {
			w.abortLocked()
			return errs.New(errs.ErrCodeConfiguration, "no table for phase %d", int(p))
		}
		s, err := w.openSink(t)
		if err != nil {
			w.abortLocked()
			return err
		}
		w.sinks[p] = s
		w.order = append(w.order, p)
	}
	return nil
}

func (w *Writer) openSink(t *schema.Table) (*phaseSink, error) {
	final := filepath.Join(w.dir, t.File)
	f, err := os.CreateTemp(w.dir, "."+t.Name+"-*"+schema.FileExt+".tmp")
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeWrite, err, "create %s", final)
	}
	config := []parquet.WriterOption{t.Schema(), parquet.Compression(w.codec)}
	s := &phaseSink{
		table: t,
		file:  f,
		final: final,
		rows:  newRowSink(t.Phase, f, w.opts.BatchSize, config),
		in:    make(chan []schema.Row, 4),
		done:  make(chan struct{}),
	}
	go s.run()
	w.opts.Logger("opened %s", f.Name())
	return s, nil
}

// Write conforms rows to phase's schema and hands them to the phase writer.
// Rows of one Write call are written contiguously and in order.
//
// A row that fails conformance is a SCHEMA_VIOLATION and nothing from the
// call is written. A previous write failure on the phase is returned as a
// WRITE_ERROR.
func (w *Writer) Write(ctx context.Context, phase schema.Phase, rows []schema.Row) error {
	s, err := w.sink(phase)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := schema.Conform(phase, r); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.failed(); err != nil {
		return err
	}
	select {
	case s.in <- rows:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) sink(phase schema.Phase) (*phaseSink, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, errs.New(errs.ErrCodeWrite, "writer is closed")
	}
	s, ok := w.sinks[phase]
	if !ok {
		return nil, errs.New(errs.ErrCodeWrite, "phase %s was not opened", phase)
	}
	return s, nil
}

// Close flushes every phase file and moves it into place. It is safe to call
// more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var first error
	for _, p := range w.order {
		s := w.sinks[p]
		start := time.Now()
		n, err := s.finish()
		w.opts.Hooks.OnWriteComplete(context.Background(), p.String(), n, time.Since(start), err)
		if err != nil && first == nil {
			first = err
		}
		if err == nil {
			w.opts.Logger("wrote %d rows to %s", n, s.final)
		}
	}
	return first
}

// Abort stops every phase writer and removes the temporary files. Existing
// phase files in the output directory are left untouched.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.abortLocked()
}

func (w *Writer) abortLocked() {
	if w.closed {
		return
	}
	w.closed = true
	for _, p := range w.order {
		w.sinks[p].discard()
	}
}

// Rows returns the number of rows written so far per phase.
func (w *Writer) Rows() map[schema.Phase]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[schema.Phase]int64, len(w.sinks))
	for p, s := range w.sinks {
		out[p] = s.count()
	}
	return out
}

// phaseSink is the single owner of one phase file.
type phaseSink struct {
	table *schema.Table
	file  *os.File
	final string
	rows  rowSink

	in   chan []schema.Row
	done chan struct{}

	mu      sync.Mutex
	err     error
	written int64
}

func (s *phaseSink) run() {
	defer close(s.done)
	for batch := range s.in {
		if s.failed() != nil {
			continue
		}
		if err := s.rows.write(batch); err != nil {
			s.fail(err)
			continue
		}
		s.mu.Lock()
		s.written += int64(len(batch))
		s.mu.Unlock()
	}
}

func (s *phaseSink) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if errs.GetCode(err) == "" {
		err = errs.Wrap(errs.ErrCodeWrite, err, "write %s", s.table.File)
	}
	s.err = err
}

func (s *phaseSink) failed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *phaseSink) count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *phaseSink) finish() (int64, error) {
	close(s.in)
	<-s.done

	if err := s.failed(); err != nil {
		s.file.Close()
		os.Remove(s.file.Name())
		return s.count(), err
	}
	if err := s.rows.close(); err != nil {
		s.file.Close()
		os.Remove(s.file.Name())
		return s.count(), errs.Wrap(errs.ErrCodeWrite, err, "flush %s", s.table.File)
	}
	if err := s.file.Close(); err != nil {
		os.Remove(s.file.Name())
		return s.count(), errs.Wrap(errs.ErrCodeWrite, err, "close %s", s.table.File)
	}
	if err := os.Rename(s.file.Name(), s.final); err != nil {
		os.Remove(s.file.Name())
		return s.count(), errs.Wrap(errs.ErrCodeWrite, err, "rename %s", s.final)
	}
	return s.count(), nil
}

func (s *phaseSink) discard() {
	close(s.in)
	<-s.done
	s.file.Close()
	os.Remove(s.file.Name())
}
