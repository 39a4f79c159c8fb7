package depgraph

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/goccy/go-graphviz"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

// Options configures dependency graph rendering.
type Options struct {
	// Root is the identity of the root crate, drawn highlighted.
	Root string

	// Kinds labels edges with their dependency kind when set. Dev and build
	// edges are always drawn dashed and dotted.
	Kinds bool
}

// ToDOT converts a resolved dependency graph to Graphviz DOT. Vertices and
// edges are emitted in sorted order so the output is stable across runs.
func ToDOT(g graph.Graph[string, string], opts Options) (string, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return "", fmt.Errorf("adjacency map: %w", err)
	}
	ids := make([]string, 0, len(adj))
	for id := range adj {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, id := range ids {
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(nodeAttrs(id, opts), ", "))
	}

	buf.WriteString("\n")
	for _, from := range ids {
		targets := make([]string, 0, len(adj[from]))
		for to := range adj[from] {
			targets = append(targets, to)
		}
		slices.Sort(targets)
		for _, to := range targets {
			kind := adj[from][to].Properties.Attributes["kind"]
			attrs := edgeAttrs(kind, opts)
			if len(attrs) == 0 {
				fmt.Fprintf(&buf, "  %q -> %q;\n", from, to)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", from, to, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func nodeAttrs(id string, opts Options) []string {
	name, version, _ := strings.Cut(id, "@")
	attrs := []string{fmt.Sprintf("label=%q", name+"\n"+version)}
	if id == opts.Root {
		attrs = append(attrs, "fillcolor=lightblue", "penwidth=2")
	}
	return attrs
}

func edgeAttrs(kind string, opts Options) []string {
	var attrs []string
	switch kind {
	case "dev":
		attrs = append(attrs, "style=dashed", "color=grey40")
	case "build":
		attrs = append(attrs, "style=dotted")
	}
	if opts.Kinds && kind != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", kind))
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// WriteFile renders g to path. The format follows the extension: .dot
// writes DOT source, .svg renders through Graphviz.
func WriteFile(ctx context.Context, path string, g graph.Graph[string, string], opts Options) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".dot" && ext != ".gv" && ext != ".svg" {
		return errs.New(errs.ErrCodeConfiguration, "unsupported graph format %q (use .dot or .svg)", ext)
	}

	dot, err := ToDOT(g, opts)
	if err != nil {
		return err
	}
	data := []byte(dot)
	if ext == ".svg" {
		if data, err = RenderSVG(ctx, dot); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
