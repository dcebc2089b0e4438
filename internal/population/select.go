package population

import (
	"math"
	"slices"

	"github.com/rickgao/ephys-qc/internal/model"
)

// SelectUnits returns the good units with SNR above minSNR whose peak
// channel lies strictly above the given percentile of those units' peak
// channels. Higher channels sit closer to the brain surface, so this keeps
// the cortical units.
func SelectUnits(units []model.Unit, minSNR, percentile float64) ([]model.Unit, error) {
	if percentile < 0 || percentile > 100 {
		return nil, model.Invalid("percentile", "must be in [0, 100], got %g", percentile)
	}

	var good []model.Unit
	for _, u := range units {
		if u.Quality == model.QualityGood && u.SNR > minSNR {
			good = append(good, u)
		}
	}
	if len(good) == 0 {
		return nil, nil
	}

	chans := make([]float64, len(good))
	for i, u := range good {
		chans[i] = float64(u.PeakChannel)
	}
	cut := Percentile(chans, percentile)

	var out []model.Unit
	for _, u := range good {
		if float64(u.PeakChannel) > cut {
			out = append(out, u)
		}
	}
	return out, nil
}

// Percentile returns the q-th percentile of x with linear interpolation
// between closest ranks. It returns NaN for empty x.
func Percentile(x []float64, q float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := slices.Clone(x)
	slices.Sort(s)

	pos := q / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
}
