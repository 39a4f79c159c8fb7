package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/cargo2hf/internal/config"
	"github.com/matzehuels/cargo2hf/pkg/cache"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/pipeline"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// testCLI returns a CLI whose logs and status output are captured.
func testCLI(t *testing.T) (*CLI, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("CARGO2HF_CARGO_HOME", t.TempDir())

	var logs, out bytes.Buffer
	c := New(&logs, LogInfo)
	c.Out = &out
	return c, &logs, &out
}

func execute(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func writeCrate(t *testing.T, dir, name, manifest string) string {
	t.Helper()
	root := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "lib.rs"), []byte("pub fn run() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

// demoProject lays out demo -> helper through a path dependency.
func demoProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCrate(t, dir, "helper", "[package]\nname = \"helper\"\nversion = \"0.3.0\"\n")
	return writeCrate(t, dir, "demo", `[package]
name = "demo"
version = "0.1.0"
license = "MIT"

[dependencies]
helper = { path = "../helper" }
`)
}

func TestCacheDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	dir, err := cacheDir(config.Default())
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(xdg, appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = "/var/cache/custom"

	dir, err := cacheDir(cfg)
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != "/var/cache/custom" {
		t.Errorf("cacheDir() = %q, want configured dir", dir)
	}
}

func TestNewCache(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()

	c, err := newCache(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("newCache() = %T, want *cache.FileCache", c)
	}

	cfg.Cache.Disabled = true
	c, err = newCache(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("newCache() with cache disabled = %T, want *cache.NullCache", c)
	}
}

func TestParsePhasesWarnsUnknown(t *testing.T) {
	c, logs, _ := testCLI(t)

	phases := c.parsePhases("metadata, bogus ,build")
	if len(phases) != 2 {
		t.Fatalf("parsePhases() returned %d phases, want 2", len(phases))
	}
	if phases[0].String() != "metadata" || phases[1].String() != "build" {
		t.Errorf("parsePhases() = %v, want [metadata build]", phases)
	}
	if !strings.Contains(logs.String(), "bogus") {
		t.Errorf("expected a warning naming the unknown phase, got %q", logs.String())
	}
}

func TestExportDefaultPhases(t *testing.T) {
	c, _, _ := testCLI(t)

	flag := c.exportCommand().Flags().Lookup("phases")
	if flag == nil || flag.DefValue != schema.DefaultPhases {
		t.Fatalf("--phases default = %v, want %q", flag, schema.DefaultPhases)
	}
	if got := c.parsePhases(flag.DefValue); len(got) != len(schema.AllPhases()) {
		t.Errorf("default phases = %v, want all %d", got, len(schema.AllPhases()))
	}
}

func TestProjectDir(t *testing.T) {
	project := demoProject(t)

	if got := projectDir(project); got != project {
		t.Errorf("projectDir(dir) = %q, want %q", got, project)
	}
	if got := projectDir(filepath.Join(project, "Cargo.toml")); got != project {
		t.Errorf("projectDir(manifest) = %q, want %q", got, project)
	}
}

func TestExport(t *testing.T) {
	c, _, out := testCLI(t)
	project := demoProject(t)
	output := filepath.Join(t.TempDir(), "dataset")
	report := filepath.Join(t.TempDir(), "run.yaml")

	err := execute(t, c, "hf-export", project, output,
		"--phases", "metadata,dependencies,bogus",
		"--report", report,
		"--quiet")
	if err != nil {
		t.Fatalf("hf-export error: %v", err)
	}

	entries, err := os.ReadDir(output)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if strings.Join(names, ",") != "dependencies.parquet,metadata.parquet" {
		t.Errorf("output files = %v, want dependencies.parquet and metadata.parquet", names)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), "state: "+string(pipeline.StateCompleted)) {
		t.Errorf("report does not record a completed run:\n%s", data)
	}
	if !strings.Contains(out.String(), "metadata.parquet") {
		t.Errorf("status output should list the phase files, got %q", out.String())
	}
}

func TestExportGraph(t *testing.T) {
	c, _, _ := testCLI(t)
	project := demoProject(t)
	output := filepath.Join(t.TempDir(), "dataset")
	dot := filepath.Join(t.TempDir(), "deps.dot")

	err := execute(t, c, "hf-export", project, output,
		"--phases", "metadata",
		"--include-deps",
		"--graph", dot,
		"--quiet")
	if err != nil {
		t.Fatalf("hf-export error: %v", err)
	}

	data, err := os.ReadFile(dot)
	if err != nil {
		t.Fatalf("graph not written: %v", err)
	}
	for _, want := range []string{"digraph", `"demo@0.1.0" -> "helper@0.3.0"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("graph missing %q:\n%s", want, data)
		}
	}
}

func TestExportNoPhases(t *testing.T) {
	c, _, _ := testCLI(t)
	project := demoProject(t)
	output := filepath.Join(t.TempDir(), "dataset")

	err := execute(t, c, "hf-export", project, output, "--phases", "bogus", "--quiet")
	if !errs.Is(err, errs.ErrCodeConfiguration) {
		t.Fatalf("hf-export error = %v, want CONFIGURATION_ERROR", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("output directory should not be created, stat err = %v", err)
	}
}

func TestExportMissingProject(t *testing.T) {
	c, _, _ := testCLI(t)

	err := execute(t, c, "hf-export", filepath.Join(t.TempDir(), "nope"), "--phases", "metadata", "--quiet")
	if !errs.Is(err, errs.ErrCodeConfiguration) {
		t.Fatalf("hf-export error = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestInspect(t *testing.T) {
	c, _, out := testCLI(t)
	project := demoProject(t)
	output := filepath.Join(t.TempDir(), "dataset")

	if err := execute(t, c, "hf-export", project, output, "--phases", "metadata", "--quiet"); err != nil {
		t.Fatalf("hf-export error: %v", err)
	}
	out.Reset()

	if err := execute(t, c, "inspect", output, "--columns"); err != nil {
		t.Fatalf("inspect error: %v", err)
	}
	got := out.String()
	for _, want := range []string{"metadata", "1 rows", "name"} {
		if !strings.Contains(got, want) {
			t.Errorf("inspect output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "does not match") {
		t.Errorf("freshly exported table should conform:\n%s", got)
	}
}

func TestInspectEmpty(t *testing.T) {
	c, _, out := testCLI(t)

	if err := execute(t, c, "inspect", t.TempDir()); err != nil {
		t.Fatalf("inspect error: %v", err)
	}
	if !strings.Contains(out.String(), "No phase tables") {
		t.Errorf("inspect output = %q, want empty notice", out.String())
	}
}

func TestCachePath(t *testing.T) {
	c, _, out := testCLI(t)
	dir := t.TempDir()
	t.Setenv("CARGO2HF_CACHE_DIR", dir)

	if err := execute(t, c, "cache", "path"); err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
}

func TestCacheClear(t *testing.T) {
	c, _, _ := testCLI(t)
	dir := t.TempDir()
	t.Setenv("CARGO2HF_CACHE_DIR", dir)

	stale := filepath.Join(dir, "entry.json")
	if err := os.WriteFile(stale, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, c, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("cache entry should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cache dir should be recreated: %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDescribeFailure(t *testing.T) {
	tests := []struct {
		name string
		f    pipeline.Failure
		want string
	}{
		{
			name: "extraction",
			f:    pipeline.Failure{Phase: "ecosystem", Target: "serde@1.0.0", Message: "not found"},
			want: "serde@1.0.0 ecosystem: not found",
		},
		{
			name: "resolution",
			f:    pipeline.Failure{Target: "demo@0.1.0", Dependency: "missing", Message: "no source"},
			want: "demo@0.1.0 dependency missing: no source",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeFailure(tt.f); got != tt.want {
				t.Errorf("describeFailure() = %q, want %q", got, tt.want)
			}
		})
	}
}
