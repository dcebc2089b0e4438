package clock

import (
	"math"

	"github.com/rickgao/ephys-qc/internal/barcode"
	"github.com/rickgao/ephys-qc/internal/model"
)

// DefaultMaxDriftPPM bounds |Scale-1|. Real crystal drift is tens of ppm;
// anything beyond this points at a decode error.
const DefaultMaxDriftPPM = 500.0

// ClockMap maps probe-local time onto the master clock.
type ClockMap struct {
	Offset float64 // Master time at local time zero (s)
	Scale  float64 // Master seconds per local second
}

// Identity returns the map for a device already on the master clock.
func Identity() ClockMap {
	return ClockMap{Scale: 1}
}

// Apply converts a local time to master time.
func (m ClockMap) Apply(t float64) float64 {
	return m.Scale*t + m.Offset
}

// ApplyAll converts local times to master times into a new slice.
func (m ClockMap) ApplyAll(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = m.Scale*t + m.Offset
	}
	return out
}

// Invert converts a master time back to local time.
func (m ClockMap) Invert(master float64) float64 {
	return (master - m.Offset) / m.Scale
}

// SampleRate returns the probe's effective sample rate on the master clock,
// given the nominal rate used to convert its sample indices to local seconds.
func (m ClockMap) SampleRate(nominal float64) float64 {
	return nominal / m.Scale
}

// DriftPPM returns the scale deviation from 1 in parts per million.
func (m ClockMap) DriftPPM() float64 {
	return (m.Scale - 1) * 1e6
}

// Options control barcode matching and the fit sanity check.
type Options struct {
	SearchWindow float64 // Max |master-probe| time for a matched pair (s), 0 = unbounded
	MaxDriftPPM  float64 // Max |Scale-1| in ppm
	MaxResidual  float64 // Max RMS fit residual (s), 0 = unchecked
}

// DefaultOptions returns unbounded matching with the default drift limit.
func DefaultOptions() Options {
	return Options{MaxDriftPPM: DefaultMaxDriftPPM}
}

// Pair is one barcode seen on both clocks.
type Pair struct {
	Value  uint64
	Master float64
	Probe  float64
}

// Alignment is a fitted ClockMap plus fit diagnostics.
type Alignment struct {
	Map      ClockMap
	Matched  int     // Pairs used in the fit
	Residual float64 // RMS residual of the fit on the master clock (s)
}

// Align fits the ClockMap taking probe time to master time.
func Align(master, probe []barcode.Event, opts Options) (ClockMap, error) {
	a, err := AlignDetailed(master, probe, opts)
	if err != nil {
		return ClockMap{}, err
	}
	return a.Map, nil
}

// AlignDetailed is Align with fit diagnostics.
func AlignDetailed(master, probe []barcode.Event, opts Options) (Alignment, error) {
	if opts.SearchWindow < 0 {
		return Alignment{}, model.Invalid("search_window", "must be >= 0, got %g", opts.SearchWindow)
	}
	if opts.MaxDriftPPM <= 0 {
		return Alignment{}, model.Invalid("max_drift_ppm", "must be > 0, got %g", opts.MaxDriftPPM)
	}
	if opts.MaxResidual < 0 {
		return Alignment{}, model.Invalid("max_residual", "must be >= 0, got %g", opts.MaxResidual)
	}

	pairs := Match(master, probe, opts.SearchWindow)
	if n := distinctValues(pairs); n < 2 {
		return Alignment{}, &model.AlignmentError{Reason: "too few matched barcodes", Matched: n}
	}

	m, residual, err := Fit(pairs)
	if err != nil {
		return Alignment{}, err
	}
	if math.Abs(m.DriftPPM()) > opts.MaxDriftPPM {
		return Alignment{}, &model.AlignmentError{
			Reason:      "scale out of range",
			Matched:     len(pairs),
			Scale:       m.Scale,
			MaxDriftPPM: opts.MaxDriftPPM,
		}
	}

	if opts.MaxResidual > 0 && residual > opts.MaxResidual {
		return Alignment{}, &model.AlignmentError{
			Reason:      "inconsistent barcode matches",
			Matched:     len(pairs),
			Residual:    residual,
			MaxResidual: opts.MaxResidual,
		}
	}

	return Alignment{Map: m, Matched: len(pairs), Residual: residual}, nil
}

// Match pairs probe barcodes with master barcodes of equal value. When a
// value occurs more than once on the master clock the candidate nearest in
// time wins. A non-zero window drops candidates further apart than window.
func Match(master, probe []barcode.Event, window float64) []Pair {
	byValue := make(map[uint64][]float64, len(master))
	for _, ev := range master {
		byValue[ev.Value] = append(byValue[ev.Value], ev.Time)
	}

	var pairs []Pair
	for _, ev := range probe {
		best, bestDist := 0.0, math.Inf(1)
		for _, mt := range byValue[ev.Value] {
			d := math.Abs(mt - ev.Time)
			if window > 0 && d > window {
				continue
			}
			if d < bestDist {
				best, bestDist = mt, d
			}
		}
		if math.IsInf(bestDist, 1) {
			continue
		}
		pairs = append(pairs, Pair{Value: ev.Value, Master: best, Probe: ev.Time})
	}
	return pairs
}

// Fit solves master = Scale*probe + Offset by least squares and returns
// the RMS residual. Two pairs give the exact two-point line.
func Fit(pairs []Pair) (ClockMap, float64, error) {
	n := float64(len(pairs))
	if len(pairs) < 2 {
		return ClockMap{}, 0, &model.AlignmentError{Reason: "too few matched barcodes", Matched: len(pairs)}
	}

	var xm, ym float64
	for _, p := range pairs {
		xm += p.Probe
		ym += p.Master
	}
	xm /= n
	ym /= n

	var sxx, sxy float64
	for _, p := range pairs {
		dx := p.Probe - xm
		sxx += dx * dx
		sxy += dx * (p.Master - ym)
	}
	if sxx == 0 {
		return ClockMap{}, 0, &model.AlignmentError{Reason: "matched barcodes share one probe time", Matched: len(pairs)}
	}

	m := ClockMap{Scale: sxy / sxx}
	m.Offset = ym - m.Scale*xm

	var ss float64
	for _, p := range pairs {
		r := p.Master - m.Apply(p.Probe)
		ss += r * r
	}

	return m, math.Sqrt(ss / n), nil
}

func distinctValues(pairs []Pair) int {
	seen := make(map[uint64]struct{}, len(pairs))
	for _, p := range pairs {
		seen[p.Value] = struct{}{}
	}
	return len(seen)
}
