package pipeline

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cargo2hf/pkg/columnar"
	"github.com/matzehuels/cargo2hf/pkg/deps"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/extract"
	"github.com/matzehuels/cargo2hf/pkg/observability"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and config
// =============================================================================

const (
	// DefaultOutputDir is where phase files go when no output is given.
	DefaultOutputDir = "hf-dataset-output"

	// DefaultConcurrency bounds concurrent targets per local phase.
	DefaultConcurrency = 8

	// DefaultNetworkConcurrency bounds concurrent targets for the phases
	// that call crates.io. It is kept low to stay within the API's crawler
	// policy of roughly one request per second.
	DefaultNetworkConcurrency = 2
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options configures one extraction run.
type Options struct {
	// ProjectPath is the crate root or its Cargo.toml.
	ProjectPath string

	// OutputDir receives one <phase>.parquet per requested phase.
	OutputDir string

	// Phases lists the phases to extract, in request order.
	Phases []schema.Phase

	// IncludeDeps extends extraction to the transitive dependency set.
	IncludeDeps bool

	Concurrency        int
	NetworkConcurrency int

	// Resolver limits, see deps.Options.
	MaxDepth        int
	MaxNodes        int
	IncludeOptional bool

	// CargoHome locates registry and git sources. Empty uses $CARGO_HOME
	// or ~/.cargo.
	CargoHome string

	BatchSize   int
	Compression string

	Source extract.SourceOptions

	// Refresh bypasses the registry caches.
	Refresh bool

	// Runtime collaborators
	Logger *log.Logger
	Hooks  observability.PipelineHooks

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. Failures
// are CONFIGURATION_ERRORs. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Phases) == 0 {
		return errs.New(errs.ErrCodeConfiguration, "no valid phases specified")
	}
	seen := make(map[schema.Phase]bool, len(o.Phases))
	for _, p := range o.Phases {
		if !p.Valid() {
			return errs.New(errs.ErrCodeConfiguration, "unknown phase %d", int(p))
		}
		if seen[p] {
			return errs.New(errs.ErrCodeConfiguration, "phase %s requested twice", p)
		}
		seen[p] = true
	}
	if o.ProjectPath == "" {
		return errs.New(errs.ErrCodeConfiguration, "project path is required")
	}
	if _, err := os.Stat(o.ProjectPath); err != nil {
		return errs.Wrap(errs.ErrCodeConfiguration, err, "project path %s", o.ProjectPath)
	}

	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.NetworkConcurrency <= 0 {
		o.NetworkConcurrency = DefaultNetworkConcurrency
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = deps.DefaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = deps.DefaultMaxNodes
	}
	if o.BatchSize <= 0 {
		o.BatchSize = columnar.DefaultBatchSize
	}
	if _, err := columnar.ParseCompression(o.Compression); err != nil {
		return err
	}
	o.Source = o.Source.WithDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Hooks == nil {
		o.Hooks = observability.Pipeline()
	}
	o.validated = true
	return nil
}

// limit returns the target concurrency for phase p.
func (o *Options) limit(p schema.Phase) int {
	if p.Network() {
		return o.NetworkConcurrency
	}
	return o.Concurrency
}

// NeedsRegistry reports whether any requested phase calls crates.io.
func (o *Options) NeedsRegistry() bool {
	for _, p := range o.Phases {
		if p.Network() {
			return true
		}
	}
	return false
}
