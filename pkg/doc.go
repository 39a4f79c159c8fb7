// Package pkg provides the core libraries for cargo2hf, which turns a Cargo
// project into a Parquet dataset.
//
// # Overview
//
// cargo2hf reads a crate (and optionally every crate it transitively depends
// on) and writes one table per extraction phase. The pkg directory is
// organized into four main areas:
//
//  1. [deps] - Manifest and lockfile loading, dependency resolution
//  2. [extract] and [schema] - Per-phase row extraction and the table layouts
//  3. [columnar] - Parquet encoding and read-back
//  4. [pipeline] - Orchestration (resolve → extract → write)
//
// Supporting packages: [integrations] (crates.io HTTP client with caching and
// retries), [cache] (file, redis and null response caches), [errors]
// (structured error codes), [observability] (hooks for progress and
// metrics) and [render/depgraph] (DOT and SVG output of the resolved graph).
//
// # Architecture
//
// The typical data flow:
//
//	Cargo.toml + Cargo.lock
//	         ↓
//	    [deps] package (resolve the target set)
//	         ↓
//	    [extract] package (one extractor per phase, rows per target)
//	         ↓
//	    [columnar] package (<phase>.parquet per phase)
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/cargo2hf/pkg/pipeline"
//	    "github.com/matzehuels/cargo2hf/pkg/schema"
//	)
//
//	phases, _ := schema.ParsePhases("metadata,dependencies,source_code")
//	report, err := pipeline.NewRunner(nil, logger).Execute(ctx, pipeline.Options{
//	    ProjectPath: "./my-crate",
//	    OutputDir:   "hf-dataset-output",
//	    Phases:      phases,
//	    IncludeDeps: true,
//	})
//
// Phases that query crates.io (ecosystem, version_history) need a registry:
//
//	client, _ := crates.NewClient(cache.NewNullCache(), crates.Config{})
//	runner := pipeline.NewRunner(client, logger)
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/deps
// [extract]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/extract
// [schema]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/schema
// [columnar]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/columnar
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/pipeline
// [integrations]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/integrations
// [cache]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/observability
// [render/depgraph]: https://pkg.go.dev/github.com/matzehuels/cargo2hf/pkg/render/depgraph
package pkg
