package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/cargo2hf/pkg/columnar"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/integrations"
	"github.com/matzehuels/cargo2hf/pkg/integrations/crates"
	"github.com/matzehuels/cargo2hf/pkg/observability"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// demoWorkspace lays out demo -> {alpha, beta}, where alpha and beta depend
// on each other through path dependencies.
func demoWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"demo/Cargo.toml": `[package]
name = "demo"
version = "0.1.0"
authors = ["Jane <jane@example.com>"]
license = "MIT"

[dependencies]
alpha = { path = "../alpha" }
beta = { path = "../beta", version = "0.2" }
`,
		"demo/src/main.rs": "fn main() {\n    alpha::run();\n}\n",
		"alpha/Cargo.toml": `[package]
name = "alpha"
version = "1.0.0"

[dependencies]
beta = { path = "../beta" }
`,
		"alpha/src/lib.rs": "pub fn run() {}\n",
		"beta/Cargo.toml": `[package]
name = "beta"
version = "0.2.0"

[dependencies]
alpha = { path = "../alpha" }
`,
		"beta/src/lib.rs": "pub struct Beta;\n",
	})
	return filepath.Join(dir, "demo")
}

func testOptions(t *testing.T, project string, phases ...schema.Phase) Options {
	t.Helper()
	return Options{
		ProjectPath: project,
		OutputDir:   filepath.Join(t.TempDir(), "out"),
		Phases:      phases,
		CargoHome:   t.TempDir(),
		Hooks:       observability.NoopPipelineHooks{},
	}
}

func outputFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestExecute_MetadataOnly(t *testing.T) {
	opts := testOptions(t, demoWorkspace(t), schema.ProjectMetadata)

	report, err := NewRunner(nil, nil).Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, report.State)
	assert.Equal(t, "demo@0.1.0", report.Project)
	assert.NotEmpty(t, report.RunID)
	assert.Nil(t, report.Graph)

	assert.Equal(t, []string{"metadata.parquet"}, outputFiles(t, opts.OutputDir))
	rows, err := columnar.ReadTable[schema.MetadataRow](filepath.Join(opts.OutputDir, "metadata.parquet"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "demo", rows[0].TargetName)
	assert.Equal(t, "0.1.0", rows[0].TargetVersion)
	assert.True(t, rows[0].IsRoot)
	assert.Equal(t, int64(1), report.Phases[0].Rows)
}

func TestExecute_NoPhases(t *testing.T) {
	opts := testOptions(t, demoWorkspace(t))

	report, err := NewRunner(nil, nil).Execute(context.Background(), opts)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errs.Is(err, errs.ErrCodeConfiguration))
	assert.NoDirExists(t, opts.OutputDir)
}

func TestExecute_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"missing project", func(o *Options) { o.ProjectPath = filepath.Join(o.CargoHome, "nope") }},
		{"duplicate phase", func(o *Options) { o.Phases = []schema.Phase{schema.BuildExtraction, schema.BuildExtraction} }},
		{"bad compression", func(o *Options) { o.Compression = "lzma" }},
		{"network phase without registry", func(o *Options) { o.Phases = []schema.Phase{schema.VersionHistory} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t, demoWorkspace(t), schema.BuildExtraction)
			tt.mutate(&opts)

			_, err := NewRunner(nil, nil).Execute(context.Background(), opts)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.ErrCodeConfiguration), "got %v", err)
			assert.NoDirExists(t, opts.OutputDir)
		})
	}
}

func TestExecute_VirtualManifest(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"Cargo.toml": "[workspace]\nmembers = [\"a\"]\n"})
	opts := testOptions(t, dir, schema.ProjectMetadata)

	report, err := NewRunner(nil, nil).Execute(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrCodeConfiguration))
	assert.Equal(t, StateFailed, report.State)
	assert.NoDirExists(t, opts.OutputDir)
}

func TestExecute_UnresolvableDependency(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"Cargo.toml":  "[package]\nname = \"demo\"\nversion = \"0.1.0\"\n\n[dependencies]\nfoo = \"1.0\"\n",
		"src/main.rs": "fn main() {}\n",
	})
	opts := testOptions(t, dir, schema.DependencyAnalysis)
	opts.IncludeDeps = true

	report, err := NewRunner(nil, nil).Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateCompletedWithFailures, report.State)

	require.Len(t, report.ResolutionFailures, 1)
	f := report.ResolutionFailures[0]
	assert.Equal(t, "demo@0.1.0", f.Target)
	assert.Equal(t, "foo", f.Dependency)
	assert.Equal(t, string(errs.ErrCodeResolution), f.Code)

	rows, err := columnar.ReadTable[schema.DependencyRow](filepath.Join(opts.OutputDir, "dependencies.parquet"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "foo", rows[0].DependencyName)
	assert.Equal(t, "1.0", rows[0].VersionReq)
	assert.Equal(t, "normal", rows[0].Kind)
}

func TestExecute_WithDependencies(t *testing.T) {
	opts := testOptions(t, demoWorkspace(t),
		schema.ProjectMetadata, schema.DependencyAnalysis, schema.SourceCodeAnalysis, schema.BuildExtraction)
	opts.IncludeDeps = true
	opts.Concurrency = 3

	report, err := NewRunner(nil, nil).Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, report.State)
	assert.Equal(t, []string{"demo@0.1.0", "alpha@1.0.0", "beta@0.2.0"}, report.Targets)
	require.NotNil(t, report.Graph)
	_, err = report.Graph.Edge("alpha@1.0.0", "beta@0.2.0")
	assert.NoError(t, err)
	_, err = report.Graph.Edge("beta@0.2.0", "alpha@1.0.0")
	assert.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"metadata.parquet", "dependencies.parquet", "source_code.parquet", "build.parquet"},
		outputFiles(t, opts.OutputDir))

	meta, err := columnar.ReadTable[schema.MetadataRow](filepath.Join(opts.OutputDir, "metadata.parquet"))
	require.NoError(t, err)
	var names []string
	for _, m := range meta {
		names = append(names, m.TargetName)
	}
	assert.Equal(t, []string{"demo", "alpha", "beta"}, names)
	assert.Equal(t, int32(1), meta[2].Depth)
	assert.Equal(t, "path", meta[1].Source)

	src, err := columnar.ReadTable[schema.SourceFileRow](filepath.Join(opts.OutputDir, "source_code.parquet"))
	require.NoError(t, err)
	var files []string
	for _, f := range src {
		files = append(files, f.TargetName+":"+f.Path)
	}
	assert.Equal(t, []string{
		"demo:Cargo.toml", "demo:src/main.rs",
		"alpha:Cargo.toml", "alpha:src/lib.rs",
		"beta:Cargo.toml", "beta:src/lib.rs",
	}, files)
	assert.Equal(t, int32(1), src[5].Structs)
}

func TestExecute_UnusualFileNameInDependency(t *testing.T) {
	project := demoWorkspace(t)
	writeTree(t, filepath.Dir(project), map[string]string{
		`beta/fixture\win.txt`: "windows path\n",
		"beta/tab\tname.txt":   "tab\n",
	})
	opts := testOptions(t, project, schema.ProjectMetadata, schema.SourceCodeAnalysis)
	opts.IncludeDeps = true

	report, err := NewRunner(nil, nil).Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, report.State)
	assert.ElementsMatch(t, []string{"metadata.parquet", "source_code.parquet"}, outputFiles(t, opts.OutputDir))

	src, err := columnar.ReadTable[schema.SourceFileRow](filepath.Join(opts.OutputDir, "source_code.parquet"))
	require.NoError(t, err)
	var beta []string
	for _, f := range src {
		if f.TargetName == "beta" {
			beta = append(beta, f.Path)
		}
	}
	assert.Equal(t, []string{"Cargo.toml", `fixture\win.txt`, "src/lib.rs", "tab\tname.txt"}, beta)
}

func TestExecute_Idempotent(t *testing.T) {
	project := demoWorkspace(t)
	phases := []schema.Phase{schema.ProjectMetadata, schema.DependencyAnalysis, schema.SourceCodeAnalysis, schema.BuildExtraction}
	opts := testOptions(t, project, phases...)
	opts.IncludeDeps = true

	snapshot := func() map[string][]byte {
		_, err := NewRunner(nil, nil).Execute(context.Background(), opts)
		require.NoError(t, err)
		out := map[string][]byte{}
		for _, name := range outputFiles(t, opts.OutputDir) {
			data, err := os.ReadFile(filepath.Join(opts.OutputDir, name))
			require.NoError(t, err)
			out[name] = data
		}
		return out
	}

	first := snapshot()
	second := snapshot()
	require.Len(t, second, len(phases))
	for name, data := range first {
		assert.True(t, bytes.Equal(data, second[name]), "%s differs between runs", name)
	}
}

type fakeRegistry struct {
	mu    sync.Mutex
	calls map[string]int
	fetch func(ctx context.Context, name string) (*crates.CrateInfo, error)
}

func (f *fakeRegistry) FetchCrate(ctx context.Context, name string, _ bool) (*crates.CrateInfo, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	f.mu.Unlock()
	return f.fetch(ctx, name)
}

func (f *fakeRegistry) ReverseDependencies(context.Context, string, bool) (int64, error) {
	return 7, nil
}

func TestExecute_ExtractionFailureIsRecorded(t *testing.T) {
	reg := &fakeRegistry{fetch: func(_ context.Context, name string) (*crates.CrateInfo, error) {
		if name == "beta" {
			return nil, integrations.ErrNetwork
		}
		return &crates.CrateInfo{Name: name, Downloads: 10, Versions: []crates.Version{{Num: "1.0.0"}}}, nil
	}}
	opts := testOptions(t, demoWorkspace(t), schema.ProjectMetadata, schema.EcosystemAnalysis)
	opts.IncludeDeps = true

	report, err := NewRunner(reg, nil).Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateCompletedWithFailures, report.State)

	eco := report.Phases[1]
	assert.Equal(t, "ecosystem", eco.Phase)
	assert.Equal(t, 2, eco.Succeeded)
	assert.Equal(t, int64(2), eco.Rows)
	require.Len(t, eco.Failures, 1)
	assert.Equal(t, "beta@0.2.0", eco.Failures[0].Target)
	assert.Equal(t, string(errs.ErrCodeExtraction), eco.Failures[0].Code)
	assert.Equal(t, 3, report.Phases[0].Succeeded)

	rows, err := columnar.ReadTable[schema.EcosystemRow](filepath.Join(opts.OutputDir, "ecosystem.parquet"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "demo", rows[0].TargetName)
	assert.Equal(t, "alpha", rows[1].TargetName)
	assert.Equal(t, int64(7), rows[0].ReverseDependencies)

	var buf strings.Builder
	require.NoError(t, report.Encode(&buf))
	assert.Contains(t, buf.String(), "state: completed_with_failures")
	assert.Contains(t, buf.String(), "code: EXTRACTION_ERROR")
}

func TestExecute_NoOutput(t *testing.T) {
	reg := &fakeRegistry{fetch: func(context.Context, string) (*crates.CrateInfo, error) {
		return nil, integrations.ErrNotFound
	}}
	opts := testOptions(t, demoWorkspace(t), schema.VersionHistory)

	report, err := NewRunner(reg, nil).Execute(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrCodeNoOutput))
	assert.Equal(t, StateFailed, report.State)
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "version_history.parquet"))
}

func TestExecute_CancelFinalizesFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := &fakeRegistry{fetch: func(ctx context.Context, name string) (*crates.CrateInfo, error) {
		if name == "demo" {
			return &crates.CrateInfo{Name: name}, nil
		}
		time.Sleep(100 * time.Millisecond)
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	opts := testOptions(t, demoWorkspace(t), schema.EcosystemAnalysis)
	opts.IncludeDeps = true
	opts.NetworkConcurrency = 1

	report, err := NewRunner(reg, nil).Execute(ctx, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateCancelled, report.State)

	rows, err := columnar.ReadTable[schema.EcosystemRow](filepath.Join(opts.OutputDir, "ecosystem.parquet"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "demo", rows[0].TargetName)
}

func TestExecute_SharedFetchAcrossPhases(t *testing.T) {
	client := &fakeRegistry{fetch: func(_ context.Context, name string) (*crates.CrateInfo, error) {
		return &crates.CrateInfo{Name: name, Versions: []crates.Version{{Num: "0.1.0"}}}, nil
	}}
	opts := testOptions(t, demoWorkspace(t), schema.EcosystemAnalysis, schema.VersionHistory)

	report, err := NewRunner(client, nil).Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, report.State)
	// Each phase asks the registry; deduplication is the client's job.
	assert.Equal(t, 2, client.calls["demo"])
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateExtracting.Terminal())
	assert.True(t, StateCompletedWithFailures.Terminal())
	assert.True(t, StateCancelled.Terminal())
}
