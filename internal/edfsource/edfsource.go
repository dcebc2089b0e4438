// Package edfsource reads continuous and digital sync signals stored in
// EDF/EDF+ files and turns digital lines into transition times.
package edfsource

import (
	"errors"
	"fmt"
	"io"

	"github.com/OpenPSG/edf"

	"github.com/rickgao/ephys-qc/internal/model"
)

const readChunk = 4096

// ReadSignal reads signal index from the EDF file in r. The EDF header does
// not carry sub-second sample timing, so the time axis is synthesized as
// start + i/sampleRate.
func ReadSignal(r io.ReadSeeker, index int, sampleRate, start float64) ([]float64, []float64, error) {
	if sampleRate <= 0 {
		return nil, nil, model.Invalid("sample_rate", "must be > 0, got %g", sampleRate)
	}
	er, err := open(r)
	if err != nil {
		return nil, nil, err
	}
	samples, err := readAll(er, index)
	if err != nil {
		return nil, nil, err
	}
	return samples, timeAxis(len(samples), sampleRate, start), nil
}

// ReadChannels reads the given signal indices into a sample-major Signal.
// All signals must have the same length.
func ReadChannels(r io.ReadSeeker, indices []int, sampleRate, start float64) (model.Signal, error) {
	if len(indices) == 0 {
		return model.Signal{}, model.Invalid("channels", "no signal indices given")
	}
	if sampleRate <= 0 {
		return model.Signal{}, model.Invalid("sample_rate", "must be > 0, got %g", sampleRate)
	}
	er, err := open(r)
	if err != nil {
		return model.Signal{}, err
	}

	var sig model.Signal
	for ch, idx := range indices {
		data, err := readAll(er, idx)
		if err != nil {
			return model.Signal{}, err
		}
		if ch == 0 {
			sig.Samples = make([][]float64, len(data))
			for i := range sig.Samples {
				sig.Samples[i] = make([]float64, len(indices))
			}
		} else if len(data) != len(sig.Samples) {
			return model.Signal{}, model.Invalid("channels", "signal %d has %d samples, want %d", idx, len(data), len(sig.Samples))
		}
		for i, v := range data {
			sig.Samples[i][ch] = v
		}
	}
	sig.Times = timeAxis(len(sig.Samples), sampleRate, start)
	return sig, nil
}

// ReadEdges reads a digital line from signal index and returns its
// transition times.
func ReadEdges(r io.ReadSeeker, index int, sampleRate, start, threshold float64) (rising, falling []float64, err error) {
	samples, times, err := ReadSignal(r, index, sampleRate, start)
	if err != nil {
		return nil, nil, err
	}
	rising, falling = Edges(samples, times, threshold)
	return rising, falling, nil
}

// Edges returns the times at which samples cross threshold upward (rising)
// and downward (falling). A crossing is stamped with the time of the first
// sample on the new side. Edges always pair up: a line that starts high
// loses its first falling edge and a line that ends high loses its last
// rising edge.
func Edges(samples, times []float64, threshold float64) (rising, falling []float64) {
	n := min(len(samples), len(times))
	for i := 1; i < n; i++ {
		was, is := samples[i-1] >= threshold, samples[i] >= threshold
		switch {
		case is && !was:
			rising = append(rising, times[i])
		case was && !is:
			falling = append(falling, times[i])
		}
	}
	if len(falling) > 0 && (len(rising) == 0 || falling[0] < rising[0]) {
		falling = falling[1:]
	}
	if len(rising) > len(falling) {
		rising = rising[:len(falling)]
	}
	if len(rising) == 0 {
		return nil, nil
	}
	return rising, falling
}

func open(r io.ReadSeeker) (*edf.Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind edf: %w", err)
	}
	er, err := edf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("open edf: %w", err)
	}
	return er, nil
}

func readAll(er *edf.Reader, index int) ([]float64, error) {
	sr, err := er.Signal(index)
	if err != nil {
		return nil, fmt.Errorf("signal %d: %w", index, err)
	}

	var out []float64
	buf := make([]float64, readChunk)
	for {
		n, err := sr.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read signal %d: %w", index, err)
		}
	}
}

func timeAxis(n int, sampleRate, start float64) []float64 {
	times := make([]float64, n)
	for i := range times {
		times[i] = start + float64(i)/sampleRate
	}
	return times
}
