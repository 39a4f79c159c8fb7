package columnar

import (
	"io"

	"github.com/parquet-go/parquet-go"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// rowSink encodes the rows of one table. Implementations are not safe for
// concurrent use; a phaseSink goroutine is their only caller.
type rowSink interface {
	write(rows []schema.Row) error
	close() error
}

func newRowSink(p schema.Phase, w io.Writer, batch int, opts []parquet.WriterOption) rowSink {
	switch p {
	case schema.ProjectMetadata:
		return newTableSink[schema.MetadataRow](w, batch, opts)
	case schema.DependencyAnalysis:
		return newTableSink[schema.DependencyRow](w, batch, opts)
	case schema.SourceCodeAnalysis:
		return newTableSink[schema.SourceFileRow](w, batch, opts)
	case schema.BuildExtraction:
		return newTableSink[schema.BuildRow](w, batch, opts)
	case schema.EcosystemAnalysis:
		return newTableSink[schema.EcosystemRow](w, batch, opts)
	case schema.VersionHistory:
		return newTableSink[schema.VersionRow](w, batch, opts)
	}
	panic("columnar: no row sink for phase " + p.String())
}

// tableSink buffers up to batch rows of type T and writes each full buffer
// as one row group.
type tableSink[T schema.Row] struct {
	w     *parquet.GenericWriter[T]
	buf   []T
	batch int
}

func newTableSink[T schema.Row](w io.Writer, batch int, opts []parquet.WriterOption) *tableSink[T] {
	return &tableSink[T]{
		w:     parquet.NewGenericWriter[T](w, opts...),
		buf:   make([]T, 0, batch),
		batch: batch,
	}
}

func (s *tableSink[T]) write(rows []schema.Row) error {
	for _, r := range rows {
		v, ok := r.(T)
		if !ok {
			var want T
			return errs.New(errs.ErrCodeSchemaViolation, "got %T row, want %T", r, want)
		}
		s.buf = append(s.buf, v)
		if len(s.buf) == s.batch {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *tableSink[T]) flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	if _, err := s.w.Write(s.buf); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	clear(s.buf)
	s.buf = s.buf[:0]
	return nil
}

func (s *tableSink[T]) close() error {
	if err := s.flush(); err != nil {
		return err
	}
	return s.w.Close()
}
