package triggered

import (
	"github.com/rickgao/ephys-qc/internal/model"
	"github.com/rickgao/ephys-qc/internal/trial"
)

// LickOptions configure LickTriggered.
type LickOptions struct {
	Options
	NumLicks     int     // Max lick bouts averaged, 0 = all
	MinInterLick float64 // Quiet time that starts a new lick bout (s)
}

// DefaultLickOptions returns the settings of the lick-triggered LFP report.
func DefaultLickOptions() LickOptions {
	return LickOptions{
		Options: Options{
			Before: 0.5,
			After:  1.5,
			Demean: true,
			Gain:   0.195,
		},
		NumLicks:     20,
		MinInterLick: 0.5,
	}
}

// LickTriggered averages sig around the first lick of each bout. Bouts
// starting within Before of the recording start are skipped.
func LickTriggered(licks []float64, sig model.Signal, opts LickOptions) (Result, error) {
	if sig.Len() == 0 {
		return Result{}, &model.InsufficientDataError{What: "signal samples", Have: 0, Need: 2}
	}

	earliest := sig.Times[0] + opts.Before
	var events []float64
	for _, t := range trial.FirstLicks(licks, opts.MinInterLick) {
		if t <= earliest {
			continue
		}
		events = append(events, t)
		if opts.NumLicks > 0 && len(events) == opts.NumLicks {
			break
		}
	}
	if len(events) == 0 {
		return Result{}, &model.InsufficientDataError{What: "lick bouts", Have: 0, Need: 1}
	}

	return Average(sig, events, opts.Options)
}
