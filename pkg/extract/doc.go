// Package extract turns one crate into the rows of one phase.
//
// An [Extractor] is built per phase with [New] and is safe for concurrent
// use: the pipeline calls [Extractor.Extract] for many targets at once.
// Shared collaborators live in [Env], which is constructed once per run.
//
// # Phases
//
//   - metadata: one row of manifest facts per target
//   - dependencies: one row per declared dependency edge, with the version
//     pinned by the root Cargo.lock when it records the edge
//   - source_code: one row per file of the crate's source tree, with line
//     counts, a SHA-256 content hash and, for Rust files, item counts.
//     Rust files are parsed with tree-sitter and their comment lines come
//     from the syntax tree
//   - build: build script, features, platform tables, crate targets and
//     profiles flattened to (category, name, value)
//   - ecosystem and version_history: crates.io facts via [Registry]
//
// # Source Tree
//
// The source walk follows what `cargo package` would ship: `target/`,
// `.git/` and nested packages are skipped, the crate's `.gitignore` and
// its `package.include` / `package.exclude` lists apply, and
// [SourceOptions.Exclude] adds globs on top. Files are emitted in lexical
// path order so repeated runs produce identical rows. Names that are not
// valid UTF-8 are skipped.
//
// # Errors
//
// Every failure is an EXTRACTION_ERROR naming the phase and the target's
// name@version. The caller records it and moves on to the next target.
package extract
