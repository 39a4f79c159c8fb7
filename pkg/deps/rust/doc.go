// Package rust loads Cargo packages from disk.
//
// # Manifests
//
// [Load] parses a Cargo.toml into a [deps.Project], resolving workspace
// inheritance (`version.workspace = true`, `dep = { workspace = true }`),
// platform-specific dependency tables, auto-discovered build scripts and
// crate targets, features and profiles:
//
//	p, err := rust.Load("path/to/crate", deps.SourceRoot)
//
// Dependencies keep their declaration order within each kind (normal, then
// build, then dev).
//
// # Lockfiles
//
// [FindLock] locates the Cargo.lock governing a crate (its own or the
// workspace root's) and [LoadLock] parses it. Pins from the lockfile take
// precedence over version requirements when locating dependencies.
//
// # Locating Dependencies
//
// [Locator] implements [deps.Locator] over Cargo's on-disk layout:
//
//  1. path dependencies, relative to the declaring manifest
//  2. vendor/ at the project root (cargo vendor)
//  3. $CARGO_HOME/git/checkouts for git dependencies
//  4. $CARGO_HOME/registry/src/*/<name>-<version> for registry crates
//
// Nothing is downloaded; a crate missing from all of these is a resolution
// failure. Run `cargo fetch` first to populate the registry cache.
//
// [deps.Project]: github.com/matzehuels/cargo2hf/pkg/deps.Project
// [deps.Locator]: github.com/matzehuels/cargo2hf/pkg/deps.Locator
package rust
