// Package cache stores raw registry responses between runs.
//
// Three backends implement [Cache]: [FileCache] (the CLI default, under the
// user cache directory), [RedisCache] (shared between machines) and
// [NullCache] (caching disabled). Keys are built by a [Keyer] so every
// backend lays entries out the same way.
package cache

import (
	"context"
	"time"
)

// TTLCrate is how long crate detail (versions, downloads) stays fresh.
const TTLCrate = 24 * time.Hour

// Cache is a byte-oriented key/value store with per-entry expiry.
// A ttl of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NullCache disables caching: lookups always miss and writes are dropped.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

func (*NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Close() error                                             { return nil }

var _ Cache = (*NullCache)(nil)
