package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/cargo2hf/internal/config"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
	"github.com/matzehuels/cargo2hf/pkg/extract"
	"github.com/matzehuels/cargo2hf/pkg/observability"
	"github.com/matzehuels/cargo2hf/pkg/pipeline"
	"github.com/matzehuels/cargo2hf/pkg/render/depgraph"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// maxListedFailures bounds the failures printed after a partial run. The
// report file always carries all of them.
const maxListedFailures = 10

// exportOpts holds the command-line flags for the hf-export command.
// Tuning flags (concurrency, limits, batch size, caching) are bound to the
// config loader instead and only override it when set explicitly.
type exportOpts struct {
	includeDeps bool   // extract the transitive dependency set too
	phases      string // comma-separated phase selector
	refresh     bool   // bypass registry caches
	quiet       bool   // no progress bar
	report      string // run report path (YAML)
	graph       string // dependency graph path (.dot or .svg)
	configFile  string // explicit config file
}

// exportCommand creates the hf-export command.
func (c *CLI) exportCommand() *cobra.Command {
	opts := exportOpts{phases: schema.DefaultPhases}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "hf-export <path> [output]",
		Short: "Export a Cargo project as a Parquet dataset",
		Long: `Export a Cargo project as a Parquet dataset.

One <phase>.parquet file is written to the output directory (default: ` + pipeline.DefaultOutputDir + `)
for each requested phase. Existing files of other phases are left untouched.`,
		Example: `  cargo2hf hf-export ./my-crate
  cargo2hf hf-export ./my-crate dataset --include-deps
  cargo2hf hf-export ./my-crate --phases metadata,source_code --report run.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := pipeline.DefaultOutputDir
			if len(args) == 2 {
				output = args[1]
			}
			return c.runExport(cmd.Context(), args[0], output, cmd.Flags(), &opts)
		},
	}

	cmd.Flags().BoolVar(&opts.includeDeps, "include-deps", false, "also extract every transitive dependency")
	cmd.Flags().StringVar(&opts.phases, "phases", opts.phases, "comma-separated phases to extract")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the registry cache")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "disable the progress bar")
	cmd.Flags().StringVar(&opts.report, "report", "", "write a run report (YAML)")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "write the dependency graph (.dot or .svg, needs --include-deps)")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "config file (default: ."+appName+".yaml in the project)")

	cmd.Flags().Int("concurrency", defaults.Concurrency, "crates extracted in parallel per phase")
	cmd.Flags().Int("max-depth", defaults.MaxDepth, "maximum dependency depth")
	cmd.Flags().Int("max-nodes", defaults.MaxNodes, "maximum dependencies to resolve")
	cmd.Flags().Int("batch-size", defaults.BatchSize, "rows per Parquet row group")
	cmd.Flags().String("compression", defaults.Compression, "Parquet compression: snappy, zstd, gzip, none")
	cmd.Flags().Bool("include-optional", false, "follow optional dependencies")
	cmd.Flags().Bool("no-cache", false, "disable the registry response cache")

	return cmd
}

// configFlags maps config keys to the flags that override them.
func configFlags(fs *pflag.FlagSet) map[string]*pflag.Flag {
	return map[string]*pflag.Flag{
		"concurrency":      fs.Lookup("concurrency"),
		"max_depth":        fs.Lookup("max-depth"),
		"max_nodes":        fs.Lookup("max-nodes"),
		"batch_size":       fs.Lookup("batch-size"),
		"compression":      fs.Lookup("compression"),
		"include_optional": fs.Lookup("include-optional"),
		"cache.disabled":   fs.Lookup("no-cache"),
	}
}

// projectDir returns the directory searched for the project config file.
func projectDir(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return filepath.Dir(path)
	}
	return path
}

// parsePhases parses the --phases selector. Unknown tokens are dropped with
// a warning; an empty selection is rejected later by the runner.
func (c *CLI) parsePhases(s string) []schema.Phase {
	phases, unknown := schema.ParsePhases(s)
	for _, tok := range unknown {
		c.Logger.Warn("ignoring unknown phase", "phase", tok)
	}
	return phases
}

// runExport loads the configuration, runs the extraction and writes the
// optional report and graph files.
func (c *CLI) runExport(ctx context.Context, path, output string, fs *pflag.FlagSet, opts *exportOpts) error {
	cfg, err := config.Loader{
		File:       opts.configFile,
		ProjectDir: projectDir(path),
		Flags:      configFlags(fs),
	}.Load()
	if err != nil {
		return err
	}
	if opts.graph != "" && !opts.includeDeps {
		c.Logger.Warn("--graph needs --include-deps, no graph will be written")
	}

	phases := c.parsePhases(opts.phases)
	popts := pipeline.Options{
		ProjectPath:        path,
		OutputDir:          output,
		Phases:             phases,
		IncludeDeps:        opts.includeDeps,
		Concurrency:        cfg.Concurrency,
		NetworkConcurrency: cfg.NetworkConcurrency,
		MaxDepth:           cfg.MaxDepth,
		MaxNodes:           cfg.MaxNodes,
		IncludeOptional:    cfg.IncludeOptional,
		CargoHome:          cfg.CargoHome,
		BatchSize:          cfg.BatchSize,
		Compression:        cfg.Compression,
		Source:             cfg.SourceOptions(),
		Refresh:            opts.refresh,
		Logger:             c.Logger,
	}

	var registry extract.Registry
	if popts.NeedsRegistry() {
		client, backend, err := newRegistry(ctx, cfg)
		if err != nil {
			return errs.Wrap(errs.ErrCodeConfiguration, err, "open registry cache")
		}
		defer backend.Close()
		registry = client
	}

	bar := newProgressHooks(os.Stderr, len(phases), opts.quiet)
	popts.Hooks = observability.TeePipeline(bar, observability.Pipeline())

	prog := newProgress(c.Logger)
	report, runErr := pipeline.NewRunner(registry, c.Logger).Execute(ctx, popts)
	bar.finish()

	if report != nil && opts.report != "" {
		if err := report.WriteFile(opts.report); err != nil {
			c.Logger.Error("failed to write report", "path", opts.report, "err", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	prog.done(fmt.Sprintf("Exported %s", report.Project))

	if opts.graph != "" && report.Graph != nil {
		gopts := depgraph.Options{Root: report.Project, Kinds: true}
		if err := depgraph.WriteFile(ctx, opts.graph, report.Graph, gopts); err != nil {
			return err
		}
	}

	c.printExport(report, output, opts)
	return nil
}

// printExport prints the output files and any recorded failures.
func (c *CLI) printExport(report *pipeline.Report, output string, opts *exportOpts) {
	printSuccess(c.Out, "Exported %d rows for %d crate(s)", report.TotalRows(), len(report.Targets))
	for _, p := range report.Phases {
		printFile(c.Out, filepath.Join(output, p.File))
		printDetail(c.Out, "%d rows · %d/%d crates", p.Rows, p.Succeeded, len(report.Targets))
	}
	if opts.report != "" {
		printFile(c.Out, opts.report)
	}
	if opts.graph != "" && report.Graph != nil {
		printFile(c.Out, opts.graph)
	}

	failures := report.Failures()
	if len(failures) == 0 {
		return
	}
	printWarning(c.Out, "%d crate(s) could not be fully extracted", len(failures))
	for i, f := range failures {
		if i == maxListedFailures {
			printDetail(c.Out, "... and %d more", len(failures)-i)
			break
		}
		printDetail(c.Out, "%s", describeFailure(f))
	}
	if opts.report == "" {
		printNextStep(c.Out, "Full details", appName+" hf-export ... --report run.yaml")
	}
}

func describeFailure(f pipeline.Failure) string {
	parts := []string{f.Target}
	if f.Phase != "" {
		parts = append(parts, f.Phase)
	}
	if f.Dependency != "" {
		parts = append(parts, "dependency "+f.Dependency)
	}
	return strings.Join(parts, " ") + ": " + f.Message
}
