// Package model defines shared data types used across the ephys QC engine.
//
// Conventions:
//   - Timestamps: float64 seconds on the master (sync device) clock unless a
//     field says otherwise
//   - Spike trains and event lists: ascending order
//   - Continuous signals: sample-major, Samples[i][channel]
//
// All values are derived once per analysis run and are never mutated after
// construction.
package model
