// Package population computes population-level spike density responses.
//
// The Runner:
//   - Selects good cortical units by quality, SNR and peak-channel depth
//   - Fans out one spike density per unit with bounded concurrency
//   - Logs and skips units whose density fails
//   - Averages the surviving units into one population curve
package population
