// Package schema is the registry of output tables produced by cargo2hf.
//
// # Overview
//
// Every extraction phase maps 1:1 to a fixed table. The table's column
// layout is derived from the phase's row struct (parquet tags), so the Go
// type is the single source of truth for names, types and repetition:
//
//	Phase              Token            Row type
//	ProjectMetadata    metadata         MetadataRow
//	DependencyAnalysis dependencies     DependencyRow
//	SourceCodeAnalysis source_code      SourceFileRow
//	BuildExtraction    build            BuildRow
//	EcosystemAnalysis  ecosystem        EcosystemRow
//	VersionHistory     version_history  VersionRow
//
// # Rows
//
// [Row] is a sealed interface: only the row types declared here satisfy it.
// [Conform] checks that a row belongs to the phase it is written under and
// that its own invariants hold; a failure is a SCHEMA_VIOLATION.
//
// # Phase selection
//
// [ParsePhases] turns a comma-separated selector into phases, keeping the
// order given and returning unrecognized tokens separately so the caller can
// report them without failing the run.
package schema
