package columnar

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// ReadTable reads every row of a phase file.
func ReadTable[T schema.Row](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read %s", path)
	}
	return rows, nil
}

// ReadPhase reads the phase file of p under dir as generic rows.
func ReadPhase(dir string, p schema.Phase) ([]schema.Row, error) {
	t := schema.Lookup(p)
	if t == nil {
		return nil, errs.New(errs.ErrCodeConfiguration, "no table for phase %d", int(p))
	}
	path := filepath.Join(dir, t.File)
	switch p {
	case schema.ProjectMetadata:
		return readRows[schema.MetadataRow](path)
	case schema.DependencyAnalysis:
		return readRows[schema.DependencyRow](path)
	case schema.SourceCodeAnalysis:
		return readRows[schema.SourceFileRow](path)
	case schema.BuildExtraction:
		return readRows[schema.BuildRow](path)
	case schema.EcosystemAnalysis:
		return readRows[schema.EcosystemRow](path)
	default:
		return readRows[schema.VersionRow](path)
	}
}

func readRows[T schema.Row](path string) ([]schema.Row, error) {
	rows, err := ReadTable[T](path)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Row, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

// TableInfo summarizes one phase file.
type TableInfo struct {
	Phase     schema.Phase
	File      string
	Size      int64
	Rows      int64
	RowGroups int
	Columns   []schema.Column
	Conforms  bool // columns match the registered table layout
}

// Inspect summarizes the phase files found in dir, in phase order. Files
// that are not phase tables are ignored.
func Inspect(dir string) ([]TableInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "read %s", dir)
	}

	var infos []TableInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		t, ok := schema.LookupFile(e.Name())
		if !ok {
			continue
		}
		info, err := inspectFile(filepath.Join(dir, e.Name()), t)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Phase < infos[j].Phase })
	return infos, nil
}

func inspectFile(path string, t *schema.Table) (TableInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return TableInfo{}, errs.Wrap(errs.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return TableInfo{}, errs.Wrap(errs.ErrCodeInvalidPath, err, "stat %s", path)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return TableInfo{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "open parquet %s", path)
	}

	info := TableInfo{
		Phase:     t.Phase,
		File:      t.File,
		Size:      st.Size(),
		Rows:      pf.NumRows(),
		RowGroups: len(pf.RowGroups()),
	}
	for _, field := range pf.Schema().Fields() {
		info.Columns = append(info.Columns, schema.Column{
			Name:     field.Name(),
			Type:     field.Type().String(),
			Repeated: field.Repeated(),
		})
	}
	info.Conforms = sameColumns(info.Columns, t.Columns)
	return info, nil
}

func sameColumns(a, b []schema.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
