// Package crates provides an HTTP client for the crates.io API.
//
// # Usage
//
//	client, err := crates.NewClient(backend, crates.Config{})
//	info, err := client.FetchCrate(ctx, "serde", false)
//	fmt.Println(info.Name, info.MaxVersion, info.Downloads)
//
//	n, err := client.ReverseDependencies(ctx, "serde", false)
//
// # CrateInfo
//
// [Client.FetchCrate] returns a [CrateInfo] with download counters,
// categories, keywords, timestamps and every published [Version]. The
// version list feeds the version history table; the counters feed the
// ecosystem table.
//
// # Caching
//
// Two layers sit in front of the API. Within a process every crate is
// fetched at most once: concurrent callers share one request and later
// callers read an in-memory memo. Across runs, responses are stored in the
// configured [cache.Cache] for Config.TTL. Pass refresh=true to bypass both.
//
// # User-Agent
//
// crates.io rejects anonymous clients; the client always sends a
// User-Agent, by default the one from buildinfo.
//
// [cache.Cache]: github.com/matzehuels/cargo2hf/pkg/cache.Cache
package crates
