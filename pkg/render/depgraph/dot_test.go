package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dominikbraun/graph"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

func sampleGraph(t *testing.T) graph.Graph[string, string] {
	t.Helper()
	g := graph.New(graph.StringHash, graph.Directed())
	for _, v := range []string{"demo@0.1.0", "serde@1.0.190", "cc@1.0.83", "pretty@1.4.0"} {
		if err := g.AddVertex(v); err != nil {
			t.Fatal(err)
		}
	}
	edges := []struct{ from, to, kind string }{
		{"demo@0.1.0", "serde@1.0.190", "normal"},
		{"demo@0.1.0", "cc@1.0.83", "build"},
		{"demo@0.1.0", "pretty@1.4.0", "dev"},
		{"pretty@1.4.0", "demo@0.1.0", "normal"},
	}
	for _, e := range edges {
		if err := g.AddEdge(e.from, e.to, graph.EdgeAttribute("kind", e.kind)); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot, err := ToDOT(sampleGraph(t), Options{Root: "demo@0.1.0"})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}

	for _, want := range []string{
		`"demo@0.1.0" [label="demo\n0.1.0", fillcolor=lightblue, penwidth=2];`,
		`"demo@0.1.0" -> "cc@1.0.83" [style=dotted];`,
		`"demo@0.1.0" -> "pretty@1.4.0" [style=dashed, color=grey40];`,
		`"demo@0.1.0" -> "serde@1.0.190";`,
		`"pretty@1.4.0" -> "demo@0.1.0";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}

	// Sorted output: cc before demo before pretty before serde.
	if strings.Index(dot, `"cc@1.0.83" [`) > strings.Index(dot, `"serde@1.0.190" [`) {
		t.Error("vertices are not sorted")
	}

	again, _ := ToDOT(sampleGraph(t), Options{Root: "demo@0.1.0"})
	if dot != again {
		t.Error("ToDOT is not deterministic")
	}
}

func TestToDOT_Kinds(t *testing.T) {
	dot, err := ToDOT(sampleGraph(t), Options{Kinds: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dot, `"demo@0.1.0" -> "serde@1.0.190" [label="normal"];`) {
		t.Errorf("edge kind label missing:\n%s", dot)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deps.dot")
	if err := WriteFile(context.Background(), path, sampleGraph(t), Options{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph G {") {
		t.Errorf("unexpected content: %.40s", data)
	}

	err = WriteFile(context.Background(), filepath.Join(dir, "deps.png"), sampleGraph(t), Options{})
	if !errs.Is(err, errs.ErrCodeConfiguration) {
		t.Errorf("png = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.50 200.00" width="100" height="200"`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}
