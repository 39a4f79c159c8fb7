package extract

import (
	"context"

	"github.com/matzehuels/cargo2hf/pkg/deps"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/integrations/crates"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// Target is one crate an extractor runs over: the root project (depth 0) or
// a resolved dependency.
type Target struct {
	*deps.Project
	Depth int
	Via   []string
}

// Root reports whether the target is the project being exported.
func (t Target) Root() bool { return t.Depth == 0 }

// RootTarget wraps the root project.
func RootTarget(p *deps.Project) Target { return Target{Project: p} }

// DependencyTarget wraps a resolved dependency.
func DependencyTarget(d deps.ResolvedDependency) Target {
	return Target{Project: d.Project, Depth: d.Depth, Via: d.Via}
}

// Registry is the subset of the crates.io client the network phases use.
type Registry interface {
	FetchCrate(ctx context.Context, crate string, refresh bool) (*crates.CrateInfo, error)
	ReverseDependencies(ctx context.Context, crate string, refresh bool) (int64, error)
}

// Env holds the collaborators shared by all extractors of a run. It is built
// once and read concurrently; nothing in it is mutated after construction.
type Env struct {
	Registry Registry       // required by EcosystemAnalysis and VersionHistory
	Lock     *deps.Lockfile // root lockfile, may be nil
	Source   SourceOptions
	Refresh  bool // bypass registry caches
}

// Extractor produces the rows of one phase. The set of phases is closed;
// Extract dispatches on it.
type Extractor struct {
	phase schema.Phase
	env   *Env
	scan  *scanner
}

// New returns the extractor for phase. Network phases require env.Registry.
func New(phase schema.Phase, env *Env) (*Extractor, error) {
	if !phase.Valid() {
		return nil, errs.New(errs.ErrCodeConfiguration, "unknown phase %d", int(phase))
	}
	if env == nil {
		env = &Env{}
	}
	if phase.Network() && env.Registry == nil {
		return nil, errs.New(errs.ErrCodeConfiguration, "phase %s needs a registry client", phase)
	}
	e := &Extractor{phase: phase, env: env}
	if phase == schema.SourceCodeAnalysis {
		s, err := newScanner(env.Source)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeConfiguration, err, "source options")
		}
		e.scan = s
	}
	return e, nil
}

// Phase returns the phase the extractor produces rows for.
func (e *Extractor) Phase() schema.Phase { return e.phase }

// Extract returns the rows of e's phase for target t, in a stable order.
// Failures are EXTRACTION_ERRORs scoped to (phase, target); a cancelled
// context is returned unwrapped.
func (e *Extractor) Extract(ctx context.Context, t Target) ([]schema.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rows []schema.Row
		err  error
	)
	switch e.phase {
	case schema.ProjectMetadata:
		rows = metadataRows(t)
	case schema.DependencyAnalysis:
		rows = dependencyRows(t, e.env.Lock)
	case schema.SourceCodeAnalysis:
		rows, err = e.scan.rows(ctx, t)
	case schema.BuildExtraction:
		rows = buildRows(t)
	case schema.EcosystemAnalysis:
		rows, err = ecosystemRows(ctx, e.env, t)
	case schema.VersionHistory:
		rows, err = versionRows(ctx, e.env, t)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrCodeExtraction, err, "%s %s", e.phase, t.ID())
	}
	return rows, nil
}
