package schema

import (
	"fmt"
	"reflect"

	"github.com/parquet-go/parquet-go"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

// FileExt is the extension of every table file.
const FileExt = ".parquet"

// Column describes one leaf column of a table.
type Column struct {
	Name     string
	Type     string
	Repeated bool
}

// Table is the fixed layout of one phase's output.
type Table struct {
	Phase   Phase
	Name    string // phase token, also the file stem
	File    string // output file name (e.g. "metadata.parquet")
	Columns []Column

	rowType reflect.Type
	schema  *parquet.Schema
}

// Schema returns the parquet schema derived from the row type.
func (t *Table) Schema() *parquet.Schema { return t.schema }

var tables = map[Phase]*Table{}

func init() {
	register(ProjectMetadata, MetadataRow{})
	register(DependencyAnalysis, DependencyRow{})
	register(SourceCodeAnalysis, SourceFileRow{})
	register(BuildExtraction, BuildRow{})
	register(EcosystemAnalysis, EcosystemRow{})
	register(VersionHistory, VersionRow{})
}

func register(p Phase, model Row) {
	if model.Phase() != p {
		panic(fmt.Sprintf("schema: %T registered under %s", model, p))
	}
	s := parquet.SchemaOf(model)
	t := &Table{
		Phase:   p,
		Name:    p.String(),
		File:    p.String() + FileExt,
		rowType: reflect.TypeOf(model),
		schema:  s,
	}
	for _, f := range s.Fields() {
		t.Columns = append(t.Columns, Column{
			Name:     f.Name(),
			Type:     f.Type().String(),
			Repeated: f.Repeated(),
		})
	}
	tables[p] = t
}

// Lookup returns the table registered for p, or nil for an unknown phase.
func Lookup(p Phase) *Table {
	return tables[p]
}

// LookupFile returns the table whose output file is named file.
func LookupFile(file string) (*Table, bool) {
	for _, t := range tables {
		if t.File == file {
			return t, true
		}
	}
	return nil, false
}

// Conform checks that row belongs to phase p and satisfies its invariants.
// Any mismatch is reported as a SCHEMA_VIOLATION.
func Conform(p Phase, row Row) error {
	t := Lookup(p)
	if t == nil {
		return errs.New(errs.ErrCodeSchemaViolation, "no table registered for phase %d", int(p))
	}
	if row == nil {
		return errs.New(errs.ErrCodeSchemaViolation, "%s: nil row", t.Name)
	}
	if got := reflect.TypeOf(row); got != t.rowType {
		return errs.New(errs.ErrCodeSchemaViolation, "%s: got %s row, want %s", t.Name, got, t.rowType)
	}
	if err := row.validate(); err != nil {
		return errs.Wrap(errs.ErrCodeSchemaViolation, err, "%s row", t.Name)
	}
	return nil
}
