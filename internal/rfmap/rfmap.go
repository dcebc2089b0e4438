// Package rfmap builds receptive-field response matrices from flashed
// gabor mapping trials.
package rfmap

import (
	"slices"
	"sort"

	"github.com/rickgao/ephys-qc/internal/model"
	"github.com/rickgao/ephys-qc/internal/trial"
)

// Stimulus is the flash shown on one mapping trial.
type Stimulus struct {
	X   float64 // Azimuth (deg)
	Y   float64 // Elevation (deg)
	Ori float64 // Orientation (deg)
}

// Params set the response window relative to each flash onset.
type Params struct {
	Latency        float64 // Delay from onset to window start (s)
	ResponseWindow float64 // Window duration (s)
}

// DefaultParams returns a 25 ms latency and a 200 ms window.
func DefaultParams() Params {
	return Params{Latency: 0.025, ResponseWindow: 0.2}
}

// Map is the summed spike count per stimulus condition.
type Map struct {
	Xs       []float64     // Sorted unique azimuths
	Ys       []float64     // Sorted unique elevations
	Oris     []float64     // Sorted unique orientations
	Response [][][]float64 // Response[y][x][ori]
}

// Build counts the spikes of a sorted train in each trial's response
// window and sums them by stimulus condition. onsets must be ascending.
func Build(spikes, onsets []float64, stims []Stimulus, p Params) (Map, error) {
	if len(stims) != len(onsets) {
		return Map{}, model.Invalid("stimuli", "length %d does not match %d onsets", len(stims), len(onsets))
	}
	if len(onsets) == 0 {
		return Map{}, &model.InsufficientDataError{What: "mapping trials", Have: 0, Need: 1}
	}
	if p.ResponseWindow <= 0 {
		return Map{}, model.Invalid("response_window", "must be > 0, got %g", p.ResponseWindow)
	}

	starts := make([]float64, len(onsets))
	ends := make([]float64, len(onsets))
	for i, t := range onsets {
		starts[i] = t + p.Latency
		ends[i] = starts[i] + p.ResponseWindow
	}
	counts, err := trial.SpikesPerTrial(spikes, starts, ends)
	if err != nil {
		return Map{}, err
	}

	m := Map{
		Xs:   unique(stims, func(s Stimulus) float64 { return s.X }),
		Ys:   unique(stims, func(s Stimulus) float64 { return s.Y }),
		Oris: unique(stims, func(s Stimulus) float64 { return s.Ori }),
	}
	m.Response = make([][][]float64, len(m.Ys))
	for yi := range m.Response {
		m.Response[yi] = make([][]float64, len(m.Xs))
		for xi := range m.Response[yi] {
			m.Response[yi][xi] = make([]float64, len(m.Oris))
		}
	}

	for i, s := range stims {
		yi := sort.SearchFloat64s(m.Ys, s.Y)
		xi := sort.SearchFloat64s(m.Xs, s.X)
		oi := sort.SearchFloat64s(m.Oris, s.Ori)
		m.Response[yi][xi][oi] += float64(counts[i])
	}
	return m, nil
}

// Spatial sums the response over orientations, indexed [y][x].
func (m Map) Spatial() [][]float64 {
	out := make([][]float64, len(m.Response))
	for yi, row := range m.Response {
		out[yi] = make([]float64, len(row))
		for xi, oris := range row {
			for _, v := range oris {
				out[yi][xi] += v
			}
		}
	}
	return out
}

// Peak returns the condition with the largest response.
func (m Map) Peak() (y, x, ori float64) {
	best := -1.0
	for yi, row := range m.Response {
		for xi, oris := range row {
			for oi, v := range oris {
				if v > best {
					best = v
					y, x, ori = m.Ys[yi], m.Xs[xi], m.Oris[oi]
				}
			}
		}
	}
	return y, x, ori
}

func unique(stims []Stimulus, key func(Stimulus) float64) []float64 {
	vals := make([]float64, len(stims))
	for i, s := range stims {
		vals[i] = key(s)
	}
	slices.Sort(vals)
	return slices.Compact(vals)
}
