package columnar

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

func metadataRows() []schema.Row {
	return []schema.Row{
		schema.MetadataRow{TargetName: "demo", TargetVersion: "0.1.0", Source: "root", IsRoot: true, Authors: []string{"a", "b"}, Edition: "2021", DependencyCount: 2},
		schema.MetadataRow{TargetName: "serde", TargetVersion: "1.0.190", Source: "registry", Depth: 1, Keywords: []string{"serde"}},
		schema.MetadataRow{TargetName: "libc", TargetVersion: "0.2.150", Source: "vendor", Depth: 2, License: "MIT OR Apache-2.0"},
	}
}

func writeAll(t *testing.T, dir string, opts Options, phase schema.Phase, batches ...[]schema.Row) {
	t.Helper()
	w, err := New(dir, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Open([]schema.Phase{phase}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, b := range batches {
		if err := w.Write(context.Background(), phase, b); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	rows := metadataRows()
	writeAll(t, dir, Options{BatchSize: 2}, schema.ProjectMetadata, rows[:1], rows[1:])

	got, err := ReadTable[schema.MetadataRow](filepath.Join(dir, "metadata.parquet"))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	var want []schema.MetadataRow
	for _, r := range rows {
		want = append(want, r.(schema.MetadataRow))
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	generic, err := ReadPhase(dir, schema.ProjectMetadata)
	if err != nil {
		t.Fatalf("ReadPhase: %v", err)
	}
	if len(generic) != 3 {
		t.Errorf("ReadPhase returned %d rows, want 3", len(generic))
	}

	infos, err := Inspect(dir)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Inspect found %d tables, want 1", len(infos))
	}
	info := infos[0]
	if info.Rows != 3 || info.RowGroups != 2 || !info.Conforms {
		t.Errorf("Inspect = rows %d, groups %d, conforms %t; want 3, 2, true", info.Rows, info.RowGroups, info.Conforms)
	}
	if info.Columns[0].Name != "target_name" {
		t.Errorf("first column = %q, want target_name", info.Columns[0].Name)
	}
}

func TestWriter_Idempotent(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeAll(t, a, Options{}, schema.ProjectMetadata, metadataRows())
	writeAll(t, b, Options{}, schema.ProjectMetadata, metadataRows()[:2], metadataRows()[2:])

	x, err := os.ReadFile(filepath.Join(a, "metadata.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	y, err := os.ReadFile(filepath.Join(b, "metadata.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(x, y) {
		t.Error("identical rows produced different files")
	}
}

func TestWriter_EmptyPhase(t *testing.T) {
	dir := t.TempDir()
	writeAll(t, dir, Options{}, schema.VersionHistory)

	rows, err := ReadTable[schema.VersionRow](filepath.Join(dir, "version_history.parquet"))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestWriter_SchemaViolation(t *testing.T) {
	w, err := New(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Abort()
	if err := w.Open([]schema.Phase{schema.ProjectMetadata}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		row  schema.Row
	}{
		{"wrong table", schema.BuildRow{TargetName: "demo", Category: "lib"}},
		{"broken invariant", schema.MetadataRow{TargetName: "demo", Depth: 1, IsRoot: true}},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Write(context.Background(), schema.ProjectMetadata, []schema.Row{tt.row})
			if !errs.Is(err, errs.ErrCodeSchemaViolation) {
				t.Errorf("Write = %v, want SCHEMA_VIOLATION", err)
			}
		})
	}
	if n := w.Rows()[schema.ProjectMetadata]; n != 0 {
		t.Errorf("%d rows written after violations, want 0", n)
	}
}

func TestWriter_PhaseNotOpened(t *testing.T) {
	w, err := New(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Open([]schema.Phase{schema.ProjectMetadata}); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	err = w.Write(context.Background(), schema.BuildExtraction, []schema.Row{schema.BuildRow{TargetName: "demo", Category: "lib"}})
	if !errs.Is(err, errs.ErrCodeWrite) {
		t.Errorf("Write = %v, want WRITE_ERROR", err)
	}
}

func TestWriter_ReplacesOnlyItsPhases(t *testing.T) {
	dir := t.TempDir()
	stale := []byte("not parquet")
	for _, name := range []string{"metadata.parquet", "build.parquet", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), stale, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	writeAll(t, dir, Options{}, schema.ProjectMetadata, metadataRows())

	if _, err := ReadTable[schema.MetadataRow](filepath.Join(dir, "metadata.parquet")); err != nil {
		t.Errorf("metadata.parquet not replaced: %v", err)
	}
	for _, name := range []string{"build.parquet", "notes.txt"} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || !bytes.Equal(got, stale) {
			t.Errorf("%s was modified", name)
		}
	}
	assertNoTemps(t, dir)
}

func TestWriter_Abort(t *testing.T) {
	dir := t.TempDir()
	stale := []byte("previous run")
	if err := os.WriteFile(filepath.Join(dir, "metadata.parquet"), stale, 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Open([]schema.Phase{schema.ProjectMetadata, schema.BuildExtraction}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), schema.ProjectMetadata, metadataRows()); err != nil {
		t.Fatal(err)
	}
	w.Abort()
	w.Abort()

	got, _ := os.ReadFile(filepath.Join(dir, "metadata.parquet"))
	if !bytes.Equal(got, stale) {
		t.Error("Abort replaced an existing phase file")
	}
	if _, err := os.Stat(filepath.Join(dir, "build.parquet")); !os.IsNotExist(err) {
		t.Error("Abort left a build.parquet behind")
	}
	assertNoTemps(t, dir)

	if err := w.Write(context.Background(), schema.ProjectMetadata, metadataRows()); !errs.Is(err, errs.ErrCodeWrite) {
		t.Errorf("Write after Abort = %v, want WRITE_ERROR", err)
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"", "snappy", "ZSTD", "gzip", "none"} {
		if _, err := ParseCompression(name); err != nil {
			t.Errorf("ParseCompression(%q) = %v", name, err)
		}
	}
	if _, err := New(t.TempDir(), Options{Compression: "lzma"}); !errs.Is(err, errs.ErrCodeConfiguration) {
		t.Errorf("New with lzma = %v, want CONFIGURATION_ERROR", err)
	}
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}
