// Package triggered extracts fixed-length snippets of a continuous signal
// around events and averages them.
package triggered

import (
	"math"
	"slices"
	"sort"

	"github.com/rickgao/ephys-qc/internal/model"
)

// DefaultMaxIntervalCV is the largest sample-interval coefficient of
// variation accepted for index-based windowing.
const DefaultMaxIntervalCV = 0.05

// ChannelRange is a half-open channel range [Lo, Hi).
type ChannelRange struct {
	Lo int
	Hi int
}

// Options configure Average.
type Options struct {
	Before        float64       // Window before each event (s)
	After         float64       // Window after each event (s)
	MaxIntervalCV float64       // Sampling regularity limit, 0 = DefaultMaxIntervalCV
	Demean        bool          // Subtract each channel's mean first
	Reference     *ChannelRange // Channels whose per-sample mean is subtracted
	Gain          float64       // Output scale (e.g. uV per bit), 0 = 1
	KeepSnippets  bool          // Return per-event snippets
}

// Result is a triggered average.
type Result struct {
	Average  [][]float64   // Average[sample][channel]
	Time     []float64     // Time axis from -Before to +After (s)
	Used     []float64     // Events whose window fit inside the recording
	Snippets [][][]float64 // Snippets[event][sample][channel], when requested
}

// Average returns the mean snippet of sig around the events. Events whose
// window would run past either end of the recording are dropped, never
// padded; Result.Used lists the events kept.
func Average(sig model.Signal, events []float64, opts Options) (Result, error) {
	n := sig.Len()
	if len(sig.Samples) != n {
		return Result{}, model.Invalid("samples", "length %d does not match %d sample times", len(sig.Samples), n)
	}
	if n < 2 {
		return Result{}, &model.InsufficientDataError{What: "signal samples", Have: n, Need: 2}
	}
	if opts.Before < 0 || opts.After < 0 {
		return Result{}, model.Invalid("window", "before and after must be >= 0, got %g and %g", opts.Before, opts.After)
	}
	nch := sig.Channels()
	for i, row := range sig.Samples {
		if len(row) != nch {
			return Result{}, model.Invalid("samples", "sample %d has %d channels, want %d", i, len(row), nch)
		}
	}
	if r := opts.Reference; r != nil && (r.Lo < 0 || r.Hi > nch || r.Lo >= r.Hi) {
		return Result{}, model.Invalid("reference", "channel range [%d, %d) outside %d channels", r.Lo, r.Hi, nch)
	}

	interval, err := sampleInterval(sig.Times, opts.MaxIntervalCV)
	if err != nil {
		return Result{}, err
	}
	before := int(math.Round(opts.Before / interval))
	after := int(math.Round(opts.After / interval))
	width := before + after
	if width == 0 {
		return Result{}, model.Invalid("window", "shorter than one sample (%gs)", interval)
	}

	var ats []int
	var used []float64
	first, last := sig.Times[0], sig.Times[n-1]
	for _, ev := range events {
		if ev < first || ev > last {
			continue
		}
		at := sort.SearchFloat64s(sig.Times, ev)
		if at-before < 0 || at+after > n {
			continue
		}
		ats = append(ats, at)
		used = append(used, ev)
	}
	if len(ats) == 0 {
		return Result{}, &model.InsufficientDataError{What: "events inside the recording", Have: 0, Need: 1}
	}

	// Means cover the recording up to the end of the last window only.
	var means []float64
	if opts.Demean {
		end := min(n, slices.Max(ats)+after+1)
		means = channelMeans(sig.Samples[:end], nch)
	}

	gain := opts.Gain
	if gain == 0 {
		gain = 1
	}

	res := Result{Average: make([][]float64, width), Used: used}
	for i := range res.Average {
		res.Average[i] = make([]float64, nch)
	}

	for _, at := range ats {
		var snip [][]float64
		if opts.KeepSnippets {
			snip = make([][]float64, width)
		}
		for k := 0; k < width; k++ {
			row := cleaned(sig.Samples[at-before+k], means, opts.Reference)
			for ch, v := range row {
				res.Average[k][ch] += v
			}
			if snip != nil {
				snip[k] = scaled(row, gain)
			}
		}
		if snip != nil {
			res.Snippets = append(res.Snippets, snip)
		}
	}

	scale := gain / float64(len(res.Used))
	for _, row := range res.Average {
		for ch := range row {
			row[ch] *= scale
		}
	}
	res.Time = linspace(-opts.Before, opts.After, width)
	return res, nil
}

// sampleInterval returns the median sample interval, or an
// IrregularSamplingError when intervals vary too much.
func sampleInterval(times []float64, maxCV float64) (float64, error) {
	if maxCV == 0 {
		maxCV = DefaultMaxIntervalCV
	}

	d := make([]float64, len(times)-1)
	var sum float64
	for i := range d {
		d[i] = times[i+1] - times[i]
		if d[i] <= 0 {
			return 0, model.Invalid("sample_times", "not strictly ascending at sample %d", i+1)
		}
		sum += d[i]
	}
	mean := sum / float64(len(d))

	var ss float64
	for _, v := range d {
		ss += (v - mean) * (v - mean)
	}
	cv := math.Sqrt(ss/float64(len(d))) / mean

	slices.Sort(d)
	median := d[len(d)/2]
	if len(d)%2 == 0 {
		median = (d[len(d)/2-1] + d[len(d)/2]) / 2
	}

	if cv > maxCV {
		return 0, &model.IrregularSamplingError{CV: cv, Threshold: maxCV, Median: median}
	}
	return median, nil
}

func channelMeans(samples [][]float64, nch int) []float64 {
	means := make([]float64, nch)
	for _, row := range samples {
		for ch, v := range row {
			means[ch] += v
		}
	}
	for ch := range means {
		means[ch] /= float64(len(samples))
	}
	return means
}

// cleaned returns one sample with channel means and the reference removed.
func cleaned(row, means []float64, ref *ChannelRange) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	if means != nil {
		for ch := range out {
			out[ch] -= means[ch]
		}
	}
	if ref != nil {
		var r float64
		for ch := ref.Lo; ch < ref.Hi; ch++ {
			r += out[ch]
		}
		r /= float64(ref.Hi - ref.Lo)
		for ch := range out {
			out[ch] -= r
		}
	}
	return out
}

func scaled(row []float64, gain float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = v * gain
	}
	return out
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
