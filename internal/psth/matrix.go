package psth

import (
	"math"

	"github.com/rickgao/ephys-qc/internal/model"
)

// TrialMatrix holds un-smoothed spike counts, one row per trial.
type TrialMatrix struct {
	Counts  [][]float64 // Counts[trial][bin]
	Edges   []float64   // Bin edges relative to trial start (s)
	BinSize float64
}

// Matrix bins a sorted spike train in [start, start+window) after every
// trial start and keeps each trial's histogram.
func Matrix(spikes, starts []float64, window, binSize float64) (TrialMatrix, error) {
	if window <= 0 {
		return TrialMatrix{}, model.Invalid("window", "must be > 0, got %g", window)
	}
	if binSize <= 0 || binSize > window {
		return TrialMatrix{}, model.Invalid("bin_size", "must be in (0, %g], got %g", window, binSize)
	}
	if len(starts) == 0 {
		return TrialMatrix{}, &model.InsufficientDataError{What: "trial starts", Have: 0, Need: 1}
	}

	nBins := int(math.Round(window / binSize))
	span := float64(nBins) * binSize
	m := TrialMatrix{
		Counts:  make([][]float64, len(starts)),
		Edges:   edges(nBins, binSize, 0),
		BinSize: binSize,
	}
	for i, start := range starts {
		row := make([]float64, nBins)
		accumulate(row, spikes, start, span, binSize)
		m.Counts[i] = row
	}
	return m, nil
}

// Rates returns the trial-averaged rate per bin (spikes/s).
func (m TrialMatrix) Rates() []float64 {
	if len(m.Counts) == 0 {
		return nil
	}
	out := make([]float64, len(m.Counts[0]))
	for _, row := range m.Counts {
		for j, c := range row {
			out[j] += c
		}
	}
	scale := 1 / (float64(len(m.Counts)) * m.BinSize)
	for j := range out {
		out[j] *= scale
	}
	return out
}

// Totals returns the spike count of each trial.
func (m TrialMatrix) Totals() []float64 {
	out := make([]float64, len(m.Counts))
	for i, row := range m.Counts {
		for _, c := range row {
			out[i] += c
		}
	}
	return out
}
