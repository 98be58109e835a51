// Package report holds the report scripts and the runtime that executes
// them.
//
// A script is a flat procedure of stages. Each stage reads a CSV file,
// applies one csvkit operation and writes the next file; the file names
// are handed from stage to stage through a Pipeline. Intermediate files
// live in a per-run work dir and are removed when the script ends.
//
// Scripts register themselves in init and are looked up by name:
//
//	runner := report.NewRunner(cfg, report.WithRecorder(runlog.NewMemory(0)))
//	res, err := runner.Run(ctx, report.Request{
//		Script: "machine_age",
//		Input:  "ib-download.csv",
//		Args:   []string{"DE"},
//	})
package report
