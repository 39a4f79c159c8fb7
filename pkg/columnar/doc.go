// Package columnar writes and reads the per-phase parquet tables.
//
// A [Writer] owns one file per phase. Rows are conformed against the phase
// schema on the caller's goroutine, then handed to a per-phase goroutine
// that is the file's only writer. Rows are buffered up to
// [Options.BatchSize] and each full buffer becomes one row group, so memory
// stays bounded regardless of how many targets are extracted.
//
// Files are written as hidden temporaries and renamed to <phase>.parquet on
// [Writer.Close]. An existing file for a phase that is not part of the run
// is left alone; a file for a phase that is part of the run is replaced,
// never appended to. [Writer.Abort] discards the temporaries.
//
// [ReadTable], [ReadPhase] and [Inspect] read the files back.
package columnar
