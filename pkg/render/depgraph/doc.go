// Package depgraph renders a resolved dependency graph as a node-link
// diagram.
//
// Each crate identity (name@version) becomes a box and each resolved
// declaration an arrow from the declaring crate to the dependency. Cycles
// are drawn as they are; Cargo allows them through dev-dependencies.
//
//	dot, err := depgraph.ToDOT(report.Graph, depgraph.Options{Root: report.Project})
//	svg, err := depgraph.RenderSVG(ctx, dot)
//
// [WriteFile] picks DOT or SVG output from the file extension.
package depgraph
