package psth

import (
	"math"
	"sort"

	"github.com/rickgao/ephys-qc/internal/model"
)

// Params configure Density.
type Params struct {
	Window      float64 // Duration after each event (s)
	BinSize     float64 // Histogram bin width (s)
	KernelWidth float64 // Boxcar smoothing width (s)
}

// DefaultParams returns 1 ms bins and a 50 ms boxcar over a 1 s window.
func DefaultParams() Params {
	return Params{
		Window:      1.0,
		BinSize:     0.001,
		KernelWidth: 0.05,
	}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if p.Window <= 0 {
		return model.Invalid("window", "must be > 0, got %g", p.Window)
	}
	if p.BinSize <= 0 {
		return model.Invalid("bin_size", "must be > 0, got %g", p.BinSize)
	}
	if p.KernelWidth < p.BinSize {
		return model.Invalid("kernel_width", "must be at least one bin (%g), got %g", p.BinSize, p.KernelWidth)
	}
	if p.Window < p.BinSize {
		return model.Invalid("window", "must be at least one bin (%g), got %g", p.BinSize, p.Window)
	}
	return nil
}

// Result is a smoothed spike density function.
type Result struct {
	Density []float64 // Mean rate per bin (spikes/s)
	Edges   []float64 // Bin edges relative to the event (s), len(Density)+1
}

// Density returns the trial-averaged, boxcar-smoothed firing rate of a
// sorted spike train around each event.
//
// Each event's window is padded by half a kernel on both sides before
// binning, and the padding is trimmed after smoothing, so the returned
// density spans exactly p.Window and Density[0] is centered on the event.
func Density(spikes, events []float64, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(events) == 0 {
		return Result{}, &model.InsufficientDataError{What: "event times", Have: 0, Need: 1}
	}

	nOut := int(math.Round(p.Window / p.BinSize))
	kn := int(math.Round(p.KernelWidth / p.BinSize))
	nBins := nOut + kn
	pad := float64(kn) * p.BinSize / 2
	span := float64(nBins) * p.BinSize

	counts := make([]float64, nBins)
	for _, ev := range events {
		accumulate(counts, spikes, ev-pad, span, p.BinSize)
	}

	n := float64(len(events))
	for i := range counts {
		counts[i] /= n
	}

	sums := Boxcar(counts, kn)
	density := make([]float64, nOut)
	norm := p.BinSize * float64(kn)
	for i := range density {
		density[i] = sums[i] / norm
	}

	return Result{Density: density, Edges: edges(nOut, p.BinSize, 0)}, nil
}

// ChangeBinSize is the bin width used by ChangeResponse (s).
const ChangeBinSize = 0.001

// ChangeResponse returns the density around image-change times with pre
// seconds of baseline and post seconds of response, using ChangeBinSize
// bins and a boxcar of width 2*sigma. Edges are relative to the change time.
func ChangeResponse(changeTimes, spikes []float64, pre, post, sigma float64) (Result, error) {
	if pre < 0 || post < 0 {
		return Result{}, model.Invalid("window", "pre and post must be >= 0, got %g and %g", pre, post)
	}
	shifted := make([]float64, len(changeTimes))
	for i, t := range changeTimes {
		shifted[i] = t - pre
	}

	res, err := Density(spikes, shifted, Params{
		Window:      pre + post,
		BinSize:     ChangeBinSize,
		KernelWidth: 2 * sigma,
	})
	if err != nil {
		return Result{}, err
	}
	for i := range res.Edges {
		res.Edges[i] -= pre
	}
	return res, nil
}

// Boxcar returns the moving sum of x over width consecutive samples
// (len(x)-width+1 values, or nil when x is shorter than width).
func Boxcar(x []float64, width int) []float64 {
	if width < 1 || len(x) < width {
		return nil
	}
	out := make([]float64, len(x)-width+1)
	var sum float64
	for i := 0; i < width; i++ {
		sum += x[i]
	}
	out[0] = sum
	for i := 1; i < len(out); i++ {
		sum += x[i+width-1] - x[i-1]
		out[i] = sum
	}
	return out
}

// accumulate adds the spikes in [start, start+span) to counts.
func accumulate(counts, spikes []float64, start, span, binSize float64) {
	lo := sort.SearchFloat64s(spikes, start)
	hi := sort.SearchFloat64s(spikes, start+span)
	last := len(counts) - 1
	for _, s := range spikes[lo:hi] {
		i := int((s - start) / binSize)
		if i > last {
			i = last
		}
		counts[i]++
	}
}

func edges(n int, binSize, origin float64) []float64 {
	out := make([]float64, n+1)
	for i := range out {
		out[i] = origin + float64(i)*binSize
	}
	return out
}
