// Package pipeline runs an extraction from a Cargo project to parquet files.
//
// A run moves through a fixed sequence of states:
//
//	initialized → resolving → extracting → writing → completed
//	                                                 completed_with_failures
//
// with failed and cancelled as the abnormal ends.
//
//  1. Initialized: options are validated, the root manifest and its
//     Cargo.lock are loaded and one extractor per phase is built. Any
//     problem here is a CONFIGURATION_ERROR and nothing is written.
//  2. Resolving: with IncludeDeps the dependency graph is resolved.
//     Crates that cannot be located are recorded, not fatal.
//  3. Extracting: all phases run concurrently, each over the root followed
//     by the resolved crates. Targets of a phase are extracted with bounded
//     concurrency but handed to the writer in target order, so files are
//     reproducible.
//  4. Writing: the writer finalizes each phase file.
//
// # Failures
//
// Per (phase, target) extraction errors are recorded in the [Report] and
// the run continues. Schema and write errors cancel the run and discard the
// files being written. If every extraction failed the run ends with
// NO_OUTPUT. Cancelling the context finalizes the phase files with the rows
// handed off so far.
//
// # Usage
//
//	runner := pipeline.NewRunner(cratesClient, logger)
//	report, err := runner.Execute(ctx, pipeline.Options{
//	    ProjectPath: ".",
//	    Phases:      schema.AllPhases(),
//	    IncludeDeps: true,
//	})
//	if err != nil {
//	    return err
//	}
//	if report.State == pipeline.StateCompletedWithFailures {
//	    // warn about report.Failures()
//	}
package pipeline
