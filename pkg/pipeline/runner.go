package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cargo2hf/pkg/columnar"
	"github.com/matzehuels/cargo2hf/pkg/deps"
	"github.com/matzehuels/cargo2hf/pkg/deps/rust"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/extract"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// Runner executes extraction runs.
//
// The Runner is stateless apart from its registry client and logger: every
// Execute call builds its own report, writer and extractors. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Registry extract.Registry
	Logger   *log.Logger
}

// NewRunner creates a runner. The registry is only required when network
// phases are requested. If logger is nil, log.Default() is used.
func NewRunner(registry extract.Registry, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Registry: registry, Logger: logger}
}

// run holds the state of one Execute call.
type run struct {
	opts    Options
	log     *log.Logger
	report  *Report
	writer  *columnar.Writer
	targets []extract.Target
}

// Execute runs the requested phases over the project and, when
// opts.IncludeDeps is set, over its resolved dependencies.
//
// The returned report is non-nil whenever the run got past option
// validation. A nil error means the run completed; check Report.State for
// recorded failures. Configuration, schema and write errors are returned
// as such and leave no phase file replaced. If ctx is cancelled during
// extraction, every phase file is finalized with the rows handed off so
// far and ctx's error is returned.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Report, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	ru := &run{
		opts:   opts,
		log:    opts.Logger,
		report: newReport(uuid.NewString(), opts.Phases),
	}
	report := ru.report
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	err := ru.execute(ctx, r.Registry)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		ru.enter(StateCancelled)
		return report, ctx.Err()
	default:
		ru.enter(StateFailed)
		return report, err
	}
	return report, nil
}

func (ru *run) enter(s State) {
	ru.log.Debug("state", "from", ru.report.State, "to", s)
	ru.report.State = s
}

func (ru *run) execute(ctx context.Context, registry extract.Registry) error {
	opts := &ru.opts

	root, err := rust.Load(opts.ProjectPath, deps.SourceRoot)
	if err != nil {
		if errs.Is(err, errs.ErrCodeConfiguration) {
			return err
		}
		return errs.Wrap(errs.ErrCodeConfiguration, err, "load project %s", opts.ProjectPath)
	}
	lock, lockPath, err := rust.FindLock(root.Dir)
	if err != nil {
		return errs.Wrap(errs.ErrCodeConfiguration, err, "load lockfile")
	}
	if lockPath != "" {
		ru.log.Debug("using lockfile", "path", lockPath)
	}
	ru.report.Project = root.ID()
	ru.report.OutputDir = opts.OutputDir

	env := &extract.Env{
		Registry: registry,
		Lock:     lock,
		Source:   opts.Source,
		Refresh:  opts.Refresh,
	}
	extractors := make([]*extract.Extractor, 0, len(opts.Phases))
	for _, p := range opts.Phases {
		e, err := extract.New(p, env)
		if err != nil {
			return err
		}
		extractors = append(extractors, e)
	}

	ru.enter(StateResolving)
	if err := ru.resolve(ctx, root, lock); err != nil {
		return err
	}

	ru.enter(StateExtracting)
	w, err := columnar.New(opts.OutputDir, columnar.Options{
		BatchSize:   opts.BatchSize,
		Compression: opts.Compression,
		Logger:      ru.log.Debugf,
		Hooks:       opts.Hooks,
	})
	if err != nil {
		return err
	}
	if err := w.Open(opts.Phases); err != nil {
		return err
	}
	ru.writer = w

	err = ru.extract(ctx, extractors)
	if err != nil && ctx.Err() == nil {
		w.Abort()
		return err
	}

	if err == nil && ru.report.Succeeded() == 0 {
		w.Abort()
		return errs.New(errs.ErrCodeNoOutput, "every phase failed on every target")
	}

	ru.enter(StateWriting)
	closeErr := w.Close()
	for p, n := range w.Rows() {
		ru.report.Phases[ru.report.index[p]].Rows = n
	}
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	if len(ru.report.Failures()) > 0 {
		ru.enter(StateCompletedWithFailures)
	} else {
		ru.enter(StateCompleted)
	}
	ru.log.Info("extraction finished",
		"targets", len(ru.targets),
		"rows", ru.report.TotalRows(),
		"failures", len(ru.report.Failures()))
	return nil
}

func (ru *run) resolve(ctx context.Context, root *deps.Project, lock *deps.Lockfile) error {
	opts := &ru.opts
	hooks := opts.Hooks

	start := time.Now()
	hooks.OnResolveStart(ctx, root.ID())

	loc := rust.NewLocator(root.Dir, lock, opts.CargoHome)
	res, err := deps.Resolve(ctx, root, opts.IncludeDeps, loc, deps.Options{
		MaxDepth:        opts.MaxDepth,
		MaxNodes:        opts.MaxNodes,
		Workers:         opts.Concurrency,
		IncludeOptional: opts.IncludeOptional,
		Logger:          ru.log.Debugf,
	})
	if err != nil {
		hooks.OnResolveComplete(ctx, root.ID(), 0, time.Since(start), err)
		return err
	}

	ru.targets = append(ru.targets, extract.RootTarget(root))
	for _, d := range res.Deps {
		ru.targets = append(ru.targets, extract.DependencyTarget(d))
	}
	for _, t := range ru.targets {
		ru.report.Targets = append(ru.report.Targets, t.ID())
	}
	for _, f := range res.Failures {
		ru.report.ResolutionFailures = append(ru.report.ResolutionFailures,
			newFailure("", f.Parent, f.Dependency, f.Err))
		ru.log.Warn("dependency not resolved", "parent", f.Parent, "dependency", f.Dependency, "err", f.Err)
	}
	ru.report.Truncated = res.Truncated
	if opts.IncludeDeps {
		ru.report.Graph = res.Graph
	}
	if res.Truncated {
		ru.log.Warn("dependency traversal truncated", "max_depth", opts.MaxDepth, "max_nodes", opts.MaxNodes)
	}

	hooks.OnResolveComplete(ctx, root.ID(), len(ru.targets), time.Since(start), nil)
	ru.log.Info("resolved dependencies",
		"targets", len(ru.targets),
		"failures", len(res.Failures),
		"duration", time.Since(start))
	return nil
}

// extract runs every phase concurrently. The first fatal error cancels the
// remaining work.
func (ru *run) extract(ctx context.Context, extractors []*extract.Extractor) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range extractors {
		g.Go(func() error {
			return ru.phase(gctx, e)
		})
	}
	return g.Wait()
}

// slot holds the outcome of one target until it is handed to the writer.
type slot struct {
	rows []schema.Row
	err  error
	done chan struct{}
}

// phase extracts one phase over all targets. Up to limit targets are
// extracted at once, but rows reach the writer strictly in target order so
// the phase file is the same on every run. At most 2*limit outcomes are
// held in memory.
func (ru *run) phase(ctx context.Context, e *extract.Extractor) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := e.Phase()
	limit := ru.opts.limit(p)
	slots := make([]slot, len(ru.targets))
	for i := range slots {
		slots[i].done = make(chan struct{})
	}
	window := make(chan struct{}, 2*limit)

	var workers errgroup.Group
	workers.SetLimit(limit)
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i := range slots {
			select {
			case window <- struct{}{}:
			case <-ctx.Done():
				return
			}
			workers.Go(func() error {
				ru.extractOne(ctx, e, ru.targets[i], &slots[i])
				return nil
			})
		}
	}()

	err := ru.drain(ctx, p, slots, window)
	cancel()
	<-launched
	workers.Wait()
	return err
}

func (ru *run) extractOne(ctx context.Context, e *extract.Extractor, t extract.Target, s *slot) {
	defer close(s.done)
	hooks := ru.opts.Hooks
	phase := e.Phase().String()

	start := time.Now()
	hooks.OnPhaseStart(ctx, phase, t.ID())
	s.rows, s.err = e.Extract(ctx, t)
	hooks.OnPhaseComplete(ctx, phase, t.ID(), len(s.rows), time.Since(start), s.err)
}

// drain hands completed slots to the writer in target order. Extraction
// failures are recorded unless [errs.Fatal] classifies them otherwise.
func (ru *run) drain(ctx context.Context, p schema.Phase, slots []slot, window <-chan struct{}) error {
	for i := range slots {
		s := &slots[i]
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		<-window

		t := ru.targets[i]
		if s.err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errs.Fatal(s.err) {
				return s.err
			}
			ru.report.fail(p, t.ID(), s.err)
			ru.log.Warn("extraction failed", "phase", p, "target", t.ID(), "err", s.err)
			continue
		}
		if err := ru.writer.Write(ctx, p, s.rows); err != nil {
			return err
		}
		ru.report.succeed(p)
		s.rows = nil
	}
	return nil
}
