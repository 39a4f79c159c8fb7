package crates

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/cargo2hf/pkg/buildinfo"
	"github.com/matzehuels/cargo2hf/pkg/cache"
	"github.com/matzehuels/cargo2hf/pkg/integrations"
)

// DefaultBaseURL is the crates.io API root.
const DefaultBaseURL = "https://crates.io/api/v1"

const memoSize = 4096

// CrateInfo holds registry-wide facts about a crate.
//
// Zero values: string fields are empty, counters are 0, Versions is nil.
// A Downloads value of 0 is valid for newly published crates.
// This struct is safe for concurrent reads after construction.
type CrateInfo struct {
	Name            string    `json:"name"`
	MaxVersion      string    `json:"max_version"`
	Description     string    `json:"description,omitempty"`
	Repository      string    `json:"repository,omitempty"`
	Downloads       int64     `json:"downloads"`
	RecentDownloads int64     `json:"recent_downloads"`
	Categories      []string  `json:"categories,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Versions        []Version `json:"versions,omitempty"` // newest first, as served
}

// Version is one published release of a crate.
type Version struct {
	Num         string    `json:"num"`
	CreatedAt   time.Time `json:"created_at"`
	Yanked      bool      `json:"yanked"`
	Downloads   int64     `json:"downloads"`
	License     string    `json:"license,omitempty"`
	CrateSize   int64     `json:"crate_size,omitempty"`
	RustVersion string    `json:"rust_version,omitempty"`
}

// Version returns the release numbered num.
func (i *CrateInfo) Version(num string) (Version, bool) {
	for _, v := range i.Versions {
		if v.Num == num {
			return v, true
		}
	}
	return Version{}, false
}

// Config configures a crates.io client.
type Config struct {
	BaseURL   string        // API root, DefaultBaseURL if empty
	UserAgent string        // required by crates.io policy, buildinfo.UserAgent() if empty
	TTL       time.Duration // cache TTL, cache.TTLCrate if zero
	Retries   int           // attempts per request, integrations.DefaultAttempts if zero
}

// Client provides access to the crates.io registry API.
// It handles HTTP requests with caching and automatic retries, and
// memoizes crate lookups for the lifetime of the client so that each crate
// is fetched at most once per run, even when several phases ask for it
// concurrently.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string

	crates  otter.Cache[string, *CrateInfo]
	reverse otter.Cache[string, int64]
	flight  singleflight.Group
}

// NewClient creates a crates.io client with the given cache backend.
// Pass cache.NewNullCache() (or nil) to disable persistent caching.
func NewClient(backend cache.Cache, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = buildinfo.UserAgent()
	}
	if cfg.TTL == 0 {
		cfg.TTL = cache.TTLCrate
	}
	if cfg.Retries == 0 {
		cfg.Retries = integrations.DefaultAttempts
	}

	crates, err := otter.MustBuilder[string, *CrateInfo](memoSize).Build()
	if err != nil {
		return nil, err
	}
	reverse, err := otter.MustBuilder[string, int64](memoSize).Build()
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"User-Agent": cfg.UserAgent}
	base := integrations.NewClient(backend, "crates", cfg.TTL, headers).
		WithRetry(cfg.Retries, integrations.DefaultDelay).
		WithKeyer(cache.NewScopedKeyer(nil, scope(cfg.BaseURL)))

	return &Client{
		Client:  base,
		baseURL: cfg.BaseURL,
		crates:  crates,
		reverse: reverse,
	}, nil
}

func scope(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host + ":"
	}
	return baseURL + ":"
}

// FetchCrate retrieves registry facts for a crate, including its full
// version list.
//
// If refresh is true, both the in-memory memo and the persistent cache are
// bypassed. Returns [integrations.ErrNotFound] (wrapped) if the crate is not
// published and [integrations.ErrNetwork] for transport failures.
func (c *Client) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	key := NormalizeName(crate)
	if !refresh {
		if info, ok := c.crates.Get(key); ok {
			return info, nil
		}
	}

	v, err, _ := c.flight.Do("crate:"+key, func() (any, error) {
		if info, ok := c.crates.Get(key); ok && !refresh {
			return info, nil
		}
		var info CrateInfo
		err := c.Cached(ctx, key, refresh, &info, func() error {
			return c.fetchCrate(ctx, crate, &info)
		})
		if err != nil {
			return nil, err
		}
		c.crates.Set(key, &info)
		return &info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CrateInfo), nil
}

// ReverseDependencies returns how many published crates depend on crate.
func (c *Client) ReverseDependencies(ctx context.Context, crate string, refresh bool) (int64, error) {
	key := NormalizeName(crate)
	if !refresh {
		if n, ok := c.reverse.Get(key); ok {
			return n, nil
		}
	}

	v, err, _ := c.flight.Do("rdeps:"+key, func() (any, error) {
		if n, ok := c.reverse.Get(key); ok && !refresh {
			return n, nil
		}
		var total int64
		err := c.Cached(ctx, key+"/reverse_dependencies", refresh, &total, func() error {
			var data reverseResponse
			u := fmt.Sprintf("%s/crates/%s/reverse_dependencies?per_page=1", c.baseURL, url.PathEscape(crate))
			if err := c.Get(ctx, u, &data); err != nil {
				return notFound(err, crate)
			}
			total = data.Meta.Total
			return nil
		})
		if err != nil {
			return nil, err
		}
		c.reverse.Set(key, total)
		return total, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (c *Client) fetchCrate(ctx context.Context, crate string, info *CrateInfo) error {
	var data crateResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, url.PathEscape(crate)), &data); err != nil {
		return notFound(err, crate)
	}

	*info = CrateInfo{
		Name:            data.Crate.Name,
		MaxVersion:      data.Crate.MaxVersion,
		Description:     data.Crate.Description,
		Repository:      repositoryURL(data.Crate.Repository),
		Downloads:       data.Crate.Downloads,
		RecentDownloads: data.Crate.RecentDownloads,
		Categories:      data.Crate.Categories,
		Keywords:        data.Crate.Keywords,
		CreatedAt:       data.Crate.CreatedAt,
		UpdatedAt:       data.Crate.UpdatedAt,
	}
	for _, v := range data.Versions {
		info.Versions = append(info.Versions, Version{
			Num:         v.Num,
			CreatedAt:   v.CreatedAt,
			Yanked:      v.Yanked,
			Downloads:   v.Downloads,
			License:     v.License,
			CrateSize:   v.CrateSize,
			RustVersion: v.RustVersion,
		})
	}
	return nil
}

func notFound(err error, crate string) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return fmt.Errorf("%w: crate %s", err, crate)
	}
	return err
}

type crateResponse struct {
	Crate struct {
		Name            string    `json:"name"`
		MaxVersion      string    `json:"max_version"`
		Description     string    `json:"description"`
		Repository      string    `json:"repository"`
		Downloads       int64     `json:"downloads"`
		RecentDownloads int64     `json:"recent_downloads"`
		Categories      []string  `json:"categories"`
		Keywords        []string  `json:"keywords"`
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	} `json:"crate"`
	Versions []struct {
		Num         string    `json:"num"`
		CreatedAt   time.Time `json:"created_at"`
		Yanked      bool      `json:"yanked"`
		Downloads   int64     `json:"downloads"`
		License     string    `json:"license"`
		CrateSize   int64     `json:"crate_size"`
		RustVersion string    `json:"rust_version"`
	} `json:"versions"`
}

type reverseResponse struct {
	Meta struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}
