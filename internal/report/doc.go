// Package report assembles the per-run QC summary.
//
// A Run collects results from every stage of one QC invocation:
//   - Barcode decode counts per clock
//   - Probe-to-master clock registrations
//   - Frame interval, lick-triggered LFP and population summaries
//
// Stages that fail are recorded on the Run rather than aborting it.
package report
