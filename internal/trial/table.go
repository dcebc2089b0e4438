package trial

import (
	"github.com/rickgao/ephys-qc/internal/model"
)

// Table is an ordered trial table.
type Table []model.Trial

// FromFrames builds a trial table from stimulus frame indices. outcomes may
// be nil.
func FromFrames(frameTimes []float64, startFrames, endFrames []int, outcomes []string) (Table, error) {
	if len(startFrames) != len(endFrames) {
		return nil, model.Invalid("end_frames", "length %d does not match %d start frames", len(endFrames), len(startFrames))
	}
	if outcomes != nil && len(outcomes) != len(startFrames) {
		return nil, model.Invalid("outcomes", "length %d does not match %d trials", len(outcomes), len(startFrames))
	}

	table := make(Table, len(startFrames))
	for i := range startFrames {
		sf, ef := startFrames[i], endFrames[i]
		if sf < 0 || sf >= len(frameTimes) || ef < 0 || ef >= len(frameTimes) {
			return nil, model.Invalid("frames", "trial %d frames [%d, %d] outside %d frame times", i, sf, ef, len(frameTimes))
		}
		table[i] = model.Trial{Index: i, Start: frameTimes[sf], End: frameTimes[ef]}
		if outcomes != nil {
			table[i].Outcome = outcomes[i]
		}
	}

	if err := validate(table.Starts(), table.Ends()); err != nil {
		return nil, err
	}
	return table, nil
}

// Starts returns the trial start times.
func (t Table) Starts() []float64 {
	out := make([]float64, len(t))
	for i, tr := range t {
		out[i] = tr.Start
	}
	return out
}

// Ends returns the trial end times.
func (t Table) Ends() []float64 {
	out := make([]float64, len(t))
	for i, tr := range t {
		out[i] = tr.End
	}
	return out
}
