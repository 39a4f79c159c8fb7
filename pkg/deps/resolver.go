package deps

import (
	"context"
	"errors"

	"github.com/dominikbraun/graph"
	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

// Failure records a dependency that could not be located or loaded.
type Failure struct {
	Parent     string // identity of the declaring crate
	Dependency string // dependency name as declared
	Err        error  // RESOLUTION_ERROR
}

// Resolution is the outcome of [Resolve].
type Resolution struct {
	// Deps holds every crate reachable from the root, each identity once,
	// in breadth-first order following declaration order.
	Deps []ResolvedDependency

	// Failures lists the dependency requests that could not be resolved.
	Failures []Failure

	// Graph has one vertex per identity (root included) and one edge per
	// resolved declaration. It may contain cycles.
	Graph graph.Graph[string, string]

	// Truncated is set when MaxDepth or MaxNodes cut the traversal short.
	Truncated bool
}

// Resolve computes the set of crates reachable from root.
//
// When include is false the result is empty and nothing is read. Otherwise
// dependencies are resolved in breadth-first waves: all requests of a wave
// are located concurrently, then merged in request order so the result is
// deterministic. A visited set keyed by identity guarantees termination on
// cyclic graphs and that no identity (including the root's) appears twice.
//
// The root follows its normal, build and dev dependencies; transitive crates
// only follow normal and build dependencies. Optional dependencies are
// followed when opts.IncludeOptional is set or the lockfile pins them.
//
// Per-request failures are recorded and do not stop sibling resolution.
// Resolve only returns an error when ctx is cancelled.
func Resolve(ctx context.Context, root *Project, include bool, loc Locator, opts Options) (*Resolution, error) {
	res := &Resolution{Graph: graph.New(graph.StringHash, graph.Directed())}
	_ = res.Graph.AddVertex(root.ID())
	if !include {
		return res, nil
	}

	r := &resolver{
		loc:     loc,
		opts:    opts.WithDefaults(),
		res:     res,
		rootID:  root.ID(),
		visited: map[string]bool{root.ID(): true},
		memo:    make(map[string]located),
	}
	return res, r.run(ctx, root)
}

type located struct {
	proj *Project
	err  error
}

type node struct {
	proj  *Project
	depth int
	via   []string
}

type request struct {
	parent node
	dep    Dependency
	key    string
}

type resolver struct {
	loc    Locator
	opts   Options
	res    *Resolution
	rootID string

	visited map[string]bool
	memo    map[string]located
}

func (r *resolver) run(ctx context.Context, root *Project) error {
	frontier := []node{{proj: root}}
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		reqs := r.requests(frontier)
		if err := r.locate(ctx, reqs); err != nil {
			return err
		}
		frontier = r.merge(reqs)
	}
	return nil
}

// requests expands the frontier into locate requests, in frontier order
// then declaration order.
func (r *resolver) requests(frontier []node) []request {
	var reqs []request
	for _, n := range frontier {
		if n.depth >= r.opts.MaxDepth {
			if len(n.proj.Dependencies) > 0 {
				r.res.Truncated = true
			}
			continue
		}
		kinds := []Kind{KindNormal, KindBuild}
		if n.depth == 0 {
			kinds = append(kinds, KindDev)
		}
		for _, dep := range n.proj.DepsOfKind(kinds...) {
			if dep.Optional && !r.opts.IncludeOptional && !r.loc.Pinned(n.proj, dep) {
				continue
			}
			reqs = append(reqs, request{parent: n, dep: dep, key: r.loc.Key(n.proj, dep)})
		}
	}
	return reqs
}

// locate resolves every request key not yet in the memo.
func (r *resolver) locate(ctx context.Context, reqs []request) error {
	var todo []request
	seen := make(map[string]bool)
	for _, q := range reqs {
		if _, ok := r.memo[q.key]; ok || seen[q.key] {
			continue
		}
		seen[q.key] = true
		todo = append(todo, q)
	}
	if len(todo) == 0 {
		return nil
	}

	out := make([]located, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, q := range todo {
		g.Go(func() error {
			p, err := r.loc.Locate(gctx, q.parent.proj, q.dep)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			out[i] = located{proj: p, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, q := range todo {
		r.memo[q.key] = out[i]
	}
	return nil
}

// merge folds located requests into the resolution and returns the next
// frontier.
func (r *resolver) merge(reqs []request) []node {
	var next []node
	for _, q := range reqs {
		parentID := q.parent.proj.ID()
		got := r.memo[q.key]
		if got.err != nil {
			err := got.err
			if !errs.Is(err, errs.ErrCodeResolution) {
				err = errs.Wrap(errs.ErrCodeResolution, err, "resolve %s -> %s", parentID, q.dep.Name)
			}
			r.res.Failures = append(r.res.Failures, Failure{Parent: parentID, Dependency: q.dep.Name, Err: err})
			r.opts.Logger("resolve failed: %s -> %s: %v", parentID, q.dep.Name, got.err)
			continue
		}

		id := got.proj.ID()
		if !r.visited[id] && len(r.res.Deps) >= r.opts.MaxNodes {
			r.res.Truncated = true
			continue
		}
		_ = r.res.Graph.AddVertex(id)
		if err := r.res.Graph.AddEdge(parentID, id, graph.EdgeAttribute("kind", string(q.dep.Kind))); err != nil &&
			!errors.Is(err, graph.ErrEdgeAlreadyExists) {
			r.opts.Logger("graph edge %s -> %s: %v", parentID, id, err)
		}

		if r.visited[id] {
			continue
		}
		r.visited[id] = true

		via := append(append([]string(nil), q.parent.via...), q.parent.proj.Name)
		rd := ResolvedDependency{Project: got.proj, Depth: q.parent.depth + 1, Via: via}
		r.res.Deps = append(r.res.Deps, rd)
		next = append(next, node{proj: got.proj, depth: rd.Depth, via: via})
	}
	return next
}
