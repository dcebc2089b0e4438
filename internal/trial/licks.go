package trial

import (
	"github.com/rickgao/ephys-qc/internal/model"
)

// FirstLicks returns the first lick of every bout. A lick starts a new bout
// when at least minInterval has passed since the previous lick; the first
// lick always does.
func FirstLicks(licks []float64, minInterval float64) []float64 {
	if len(licks) == 0 {
		return nil
	}
	out := []float64{licks[0]}
	for i := 1; i < len(licks); i++ {
		if licks[i]-licks[i-1] >= minInterval {
			out = append(out, licks[i])
		}
	}
	return out
}

// RewardedLicks returns bout-onset licks that fall inside HIT trials.
func RewardedLicks(licks []float64, trials Table, minInterval float64) ([]float64, error) {
	first := FirstLicks(licks, minInterval)
	idx, err := IndexOf(first, trials.Starts(), trials.Ends())
	if err != nil {
		return nil, err
	}

	var out []float64
	for k, i := range idx {
		if i != NoTrial && trials[i].Outcome == model.OutcomeHit {
			out = append(out, first[k])
		}
	}
	return out, nil
}
