package crates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/cargo2hf/pkg/cache"
	"github.com/matzehuels/cargo2hf/pkg/integrations"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient(cache.NewNullCache(), Config{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Client == nil {
		t.Error("expected client to be initialized")
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
}

const serdeJSON = `{
  "crate": {
    "name": "serde",
    "max_version": "1.0.1",
    "description": "A serialization framework",
    "repository": "https://github.com/serde-rs/serde.git",
    "downloads": 1000000,
    "recent_downloads": 5000,
    "categories": ["encoding"],
    "keywords": ["serde", "serialization"],
    "created_at": "2015-01-01T00:00:00Z",
    "updated_at": "2024-01-01T00:00:00Z"
  },
  "versions": [
    {"num": "1.0.1", "created_at": "2024-01-01T00:00:00Z", "yanked": false, "downloads": 600, "license": "MIT OR Apache-2.0", "crate_size": 7000, "rust_version": "1.31"},
    {"num": "1.0.0", "created_at": "2015-01-01T00:00:00Z", "yanked": true, "downloads": 400, "license": "MIT"}
  ]
}`

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") == "" {
			t.Error("request without User-Agent")
		}
		switch r.URL.Path {
		case "/crates/serde":
			w.Write([]byte(serdeJSON))
		case "/crates/serde/reverse_dependencies":
			if r.URL.Query().Get("per_page") != "1" {
				t.Errorf("per_page = %q", r.URL.Query().Get("per_page"))
			}
			json.NewEncoder(w).Encode(map[string]any{"meta": map[string]any{"total": 42}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestClient_FetchCrate(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, &hits)
	defer server.Close()

	c := testClient(t, server.URL, cache.NewNullCache())

	info, err := c.FetchCrate(context.Background(), "serde", false)
	if err != nil {
		t.Fatalf("FetchCrate failed: %v", err)
	}

	if info.Name != "serde" || info.MaxVersion != "1.0.1" {
		t.Errorf("identity = %s@%s", info.Name, info.MaxVersion)
	}
	if info.Repository != "https://github.com/serde-rs/serde" {
		t.Errorf("repository not normalized: %s", info.Repository)
	}
	if info.Downloads != 1000000 || info.RecentDownloads != 5000 {
		t.Errorf("downloads = %d/%d", info.Downloads, info.RecentDownloads)
	}
	if len(info.Versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(info.Versions))
	}
	v, ok := info.Version("1.0.0")
	if !ok || !v.Yanked || v.Downloads != 400 {
		t.Errorf("Version(1.0.0) = %+v, %t", v, ok)
	}
	if !info.CreatedAt.Equal(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", info.CreatedAt)
	}
}

func TestClient_FetchCrate_Memoized(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, &hits)
	defer server.Close()

	c := testClient(t, server.URL, cache.NewNullCache())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.FetchCrate(context.Background(), "serde", false); err != nil {
				t.Errorf("FetchCrate: %v", err)
			}
		}()
	}
	wg.Wait()
	if _, err := c.FetchCrate(context.Background(), "serde", false); err != nil {
		t.Fatal(err)
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestClient_FetchCrate_PersistentCache(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, &hits)
	defer server.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// Two clients share the file cache like two consecutive runs
	first := testClient(t, server.URL, fc)
	if _, err := first.FetchCrate(context.Background(), "serde", false); err != nil {
		t.Fatal(err)
	}
	second := testClient(t, server.URL, fc)
	info, err := second.FetchCrate(context.Background(), "serde", false)
	if err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if len(info.Versions) != 2 {
		t.Errorf("cached info lost versions: %+v", info)
	}

	// refresh bypasses both layers
	if _, err := second.FetchCrate(context.Background(), "serde", true); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits after refresh = %d, want 2", hits.Load())
	}
}

func TestClient_FetchCrate_NotFound(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, &hits)
	defer server.Close()

	c := testClient(t, server.URL, cache.NewNullCache())

	_, err := c.FetchCrate(context.Background(), "nonexistent", true)
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "nonexistent") {
		t.Errorf("error should name the crate: %v", err)
	}
}

func TestClient_ReverseDependencies(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, &hits)
	defer server.Close()

	c := testClient(t, server.URL, cache.NewNullCache())

	n, err := c.ReverseDependencies(context.Background(), "serde", false)
	if err != nil {
		t.Fatalf("ReverseDependencies: %v", err)
	}
	if n != 42 {
		t.Errorf("reverse dependencies = %d, want 42", n)
	}
	if _, err := c.ReverseDependencies(context.Background(), "serde", false); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestScope(t *testing.T) {
	if got := scope("https://crates.io/api/v1"); got != "crates.io:" {
		t.Errorf("scope = %q", got)
	}
	if got := scope("http://127.0.0.1:8080/api"); got != "127.0.0.1:8080:" {
		t.Errorf("scope = %q", got)
	}
}

func testClient(t *testing.T, serverURL string, backend cache.Cache) *Client {
	t.Helper()
	c, err := NewClient(backend, Config{BaseURL: serverURL, Retries: 1})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}
