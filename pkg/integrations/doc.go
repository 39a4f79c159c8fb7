// Package integrations provides the shared HTTP client used by registry
// API clients.
//
// # Overview
//
// The only registry cargo2hf talks to is crates.io, implemented in the
// [crates] subpackage. It is consulted by the ecosystem and version history
// phases; every other phase works offline.
//
// # Client Pattern
//
// Registry clients embed [Client] and wrap each logical fetch in
// [Client.Cached]:
//
//	err := c.Cached(ctx, key, refresh, &info, func() error {
//	    return c.Get(ctx, url, &resp)
//	})
//
// Cached consults the [cache.Cache] backend first, then runs the fetch under
// [httputil.Retry]. Transport failures and 5xx responses are retried with
// exponential backoff; 429 responses are retried after the server's
// Retry-After delay. A 404 maps to [ErrNotFound] and is never retried.
//
// [crates]: github.com/matzehuels/cargo2hf/pkg/integrations/crates
// [cache.Cache]: github.com/matzehuels/cargo2hf/pkg/cache.Cache
// [httputil.Retry]: github.com/matzehuels/cargo2hf/pkg/httputil.Retry
package integrations
