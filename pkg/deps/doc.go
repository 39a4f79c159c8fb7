// Package deps models Cargo packages and resolves the set of crates a
// project depends on.
//
// # Model
//
// A [Project] is one loaded Cargo package: the manifest fields, its declared
// [Dependency] entries and its [BuildConfig]. Projects are produced by a
// [Locator] (the Cargo implementation lives in [rust]) and are not modified
// afterwards.
//
// # Resolving Dependencies
//
// [Resolve] walks the declared dependencies breadth first:
//
//	res, err := deps.Resolve(ctx, root, includeDeps, locator, deps.Options{
//	    MaxDepth: 10,
//	    MaxNodes: 1000,
//	})
//	for _, d := range res.Deps {
//	    fmt.Println(d.ID(), d.Depth)
//	}
//
// Each wave is located concurrently and merged in declaration order, so two
// runs over the same tree produce the same [Resolution]. Crates are
// deduplicated by identity (name@version); cycles terminate because the
// visited set is consulted before a crate is expanded.
//
// A dependency that cannot be located or whose manifest fails to load is
// recorded in [Resolution.Failures] and skipped; its siblings continue.
//
// # Options
//
// [Options] bounds the traversal:
//
//   - MaxDepth: stop expanding below this depth (default 50)
//   - MaxNodes: stop adding crates after this many (default 5000)
//   - Workers: concurrent locate calls per wave (default 16)
//   - IncludeOptional: follow optional dependencies the lockfile does not pin
//
// [rust]: github.com/matzehuels/cargo2hf/pkg/deps/rust
package deps
