// Package trial maps event and spike times onto trial windows.
//
// Every window is half-open, [start, end). Lookups use binary search over
// the sorted trial boundaries so cost grows with log(trials), not with
// events x trials.
package trial

import (
	"sort"

	"github.com/rickgao/ephys-qc/internal/model"
)

// NoTrial is returned by IndexOf for times outside every trial.
const NoTrial = -1

// IndexOf returns, for each event time, the index i with
// starts[i] <= t < ends[i], or NoTrial. Trials must be sorted and must not
// overlap; gaps between trials are allowed.
func IndexOf(events, starts, ends []float64) ([]int, error) {
	if err := validate(starts, ends); err != nil {
		return nil, err
	}
	for i := 1; i < len(starts); i++ {
		if starts[i] < ends[i-1] {
			return nil, model.Invalid("trial_starts", "trial %d starts at %g before trial %d ends at %g", i, starts[i], i-1, ends[i-1])
		}
	}

	out := make([]int, len(events))
	for k, t := range events {
		// Last trial starting at or before t.
		i := sort.Search(len(starts), func(j int) bool { return starts[j] > t }) - 1
		if i >= 0 && t < ends[i] {
			out[k] = i
		} else {
			out[k] = NoTrial
		}
	}
	return out, nil
}

// SpikesPerTrial counts the spikes in each trial window. spikes must be
// sorted ascending. Windows may overlap; a spike is counted in every window
// containing it.
func SpikesPerTrial(spikes, starts, ends []float64) ([]int, error) {
	if err := validate(starts, ends); err != nil {
		return nil, err
	}

	counts := make([]int, len(starts))
	for i := range starts {
		counts[i] = countInWindow(spikes, starts[i], ends[i])
	}
	return counts, nil
}

// countInWindow counts sorted values in [lo, hi).
func countInWindow(sorted []float64, lo, hi float64) int {
	return sort.SearchFloat64s(sorted, hi) - sort.SearchFloat64s(sorted, lo)
}

// validate checks the boundary preconditions shared by all lookups.
func validate(starts, ends []float64) error {
	if len(starts) != len(ends) {
		return model.Invalid("trial_ends", "length %d does not match %d trial starts", len(ends), len(starts))
	}
	for i := range starts {
		if ends[i] < starts[i] {
			return model.Invalid("trial_ends", "trial %d has negative duration (%g to %g)", i, starts[i], ends[i])
		}
		if i > 0 && starts[i] < starts[i-1] {
			return model.Invalid("trial_starts", "not ascending at trial %d (%g < %g)", i, starts[i], starts[i-1])
		}
	}
	return nil
}
