// Package vsync summarizes stimulus frame intervals.
package vsync

import (
	"math"
	"slices"

	"github.com/rickgao/ephys-qc/internal/model"
)

// Interval bounds, in seconds.
const (
	PauseMin = 0.1 // Shortest interval counted as a pause
	BreakMin = 1.0 // Shortest interval counted as an epoch break
)

// Report is the frame-interval summary.
type Report struct {
	Frames int     `json:"frames"`
	Mean   float64 `json:"mean_interval"`
	Median float64 `json:"median_interval"`
	Std    float64 `json:"std_interval"`
	Pauses int     `json:"pauses"` // Intervals in [PauseMin, BreakMin)
	Breaks int     `json:"breaks"` // Intervals >= BreakMin, normally one per epoch boundary
}

// Summarize reports on the intervals between successive vsync times.
func Summarize(vsyncs []float64) (Report, error) {
	if len(vsyncs) < 2 {
		return Report{}, &model.InsufficientDataError{What: "vsync times", Have: len(vsyncs), Need: 2}
	}

	d := make([]float64, len(vsyncs)-1)
	var sum float64
	r := Report{Frames: len(vsyncs)}
	for i := range d {
		d[i] = vsyncs[i+1] - vsyncs[i]
		if d[i] < 0 {
			return Report{}, model.Invalid("vsync_times", "not ascending at frame %d", i+1)
		}
		sum += d[i]
		switch {
		case d[i] >= BreakMin:
			r.Breaks++
		case d[i] >= PauseMin:
			r.Pauses++
		}
	}
	r.Mean = sum / float64(len(d))

	var ss float64
	for _, v := range d {
		ss += (v - r.Mean) * (v - r.Mean)
	}
	r.Std = math.Sqrt(ss / float64(len(d)))

	slices.Sort(d)
	r.Median = d[len(d)/2]
	if len(d)%2 == 0 {
		r.Median = (d[len(d)/2-1] + d[len(d)/2]) / 2
	}
	return r, nil
}
