package clock_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/ephys-qc/internal/barcode"
	"github.com/rickgao/ephys-qc/internal/clock"
	"github.com/rickgao/ephys-qc/internal/model"
)

// masterBarcodes returns n barcodes 30 s apart with values starting at first.
func masterBarcodes(n int, first uint64) []barcode.Event {
	events := make([]barcode.Event, n)
	for i := range events {
		events[i] = barcode.Event{Time: 12.5 + float64(i)*30, Value: first + uint64(i)}
	}
	return events
}

// onProbe re-expresses master barcodes on a probe clock related by m.
func onProbe(events []barcode.Event, m clock.ClockMap) []barcode.Event {
	out := make([]barcode.Event, len(events))
	for i, ev := range events {
		out[i] = barcode.Event{Time: m.Invert(ev.Time), Value: ev.Value}
	}
	return out
}

func TestAlignRecoversKnownTransform(t *testing.T) {
	tests := []struct {
		name string
		want clock.ClockMap
	}{
		{name: "identity", want: clock.Identity()},
		{name: "offset only", want: clock.ClockMap{Offset: -104.25, Scale: 1}},
		{name: "drift", want: clock.ClockMap{Offset: 3.75, Scale: 1 + 37e-6}},
		{name: "negative drift", want: clock.ClockMap{Offset: 1800.1, Scale: 1 - 120e-6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			master := masterBarcodes(120, 1000)
			probe := onProbe(master, tt.want)

			got, err := clock.Align(master, probe, clock.DefaultOptions())
			require.NoError(t, err)
			assert.InEpsilon(t, tt.want.Scale, got.Scale, 1e-9)
			assert.InDelta(t, tt.want.Offset, got.Offset, 1e-6)
		})
	}
}

func TestAlignPartialOverlap(t *testing.T) {
	want := clock.ClockMap{Offset: -250, Scale: 1 + 20e-6}
	master := masterBarcodes(100, 0)

	// Probe started late and stopped early, and saw barcodes the master
	// recording missed.
	probe := onProbe(master[40:70], want)
	probe = append(probe, onProbe(masterBarcodes(5, 5000), want)...)

	a, err := clock.AlignDetailed(master, probe, clock.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 30, a.Matched)
	assert.InEpsilon(t, want.Scale, a.Map.Scale, 1e-9)
	assert.InDelta(t, want.Offset, a.Map.Offset, 1e-6)
	assert.Less(t, a.Residual, 1e-9)
}

func TestAlignTwoPointExact(t *testing.T) {
	master := []barcode.Event{{Time: 100, Value: 7}, {Time: 130, Value: 8}}
	probe := []barcode.Event{{Time: 50, Value: 7}, {Time: 80.0006, Value: 8}}

	m, err := clock.Align(master, probe, clock.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 100, m.Apply(50), 1e-9)
	assert.InDelta(t, 130, m.Apply(80.0006), 1e-9)
}

func TestAlignAveragesJitter(t *testing.T) {
	want := clock.ClockMap{Offset: 12, Scale: 1 + 15e-6}
	master := masterBarcodes(200, 0)
	probe := onProbe(master, want)

	rng := rand.New(rand.NewPCG(3, 4))
	for i := range probe {
		probe[i].Time += (rng.Float64() - 0.5) * 66e-6 // +/- one 30 kHz sample
	}

	a, err := clock.AlignDetailed(master, probe, clock.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, want.Scale, a.Map.Scale, 1e-6)
	assert.InDelta(t, want.Offset, a.Map.Offset, 1e-4)
	assert.Less(t, a.Residual, 66e-6)
}

func TestAlignErrors(t *testing.T) {
	master := masterBarcodes(10, 0)

	t.Run("single match", func(t *testing.T) {
		probe := []barcode.Event{{Time: 3, Value: 4}, {Time: 33, Value: 999}}
		_, err := clock.Align(master, probe, clock.DefaultOptions())

		var alignErr *model.AlignmentError
		require.True(t, errors.As(err, &alignErr))
		assert.Equal(t, 1, alignErr.Matched)
	})

	t.Run("repeated value only", func(t *testing.T) {
		probe := []barcode.Event{{Time: 3, Value: 4}, {Time: 33, Value: 4}}
		_, err := clock.Align(master, probe, clock.DefaultOptions())

		var alignErr *model.AlignmentError
		require.True(t, errors.As(err, &alignErr))
	})

	t.Run("scale out of range", func(t *testing.T) {
		probe := onProbe(master, clock.ClockMap{Scale: 1.01})
		_, err := clock.Align(master, probe, clock.DefaultOptions())

		var alignErr *model.AlignmentError
		require.True(t, errors.As(err, &alignErr))
		assert.InDelta(t, 1.01, alignErr.Scale, 1e-9)
	})

	t.Run("residual over limit", func(t *testing.T) {
		probe := onProbe(master, clock.ClockMap{Offset: 2, Scale: 1})
		probe[4].Time += 0.5

		opts := clock.DefaultOptions()
		_, err := clock.Align(master, probe, opts)
		require.NoError(t, err)

		opts.MaxResidual = 0.01
		_, err = clock.Align(master, probe, opts)
		var alignErr *model.AlignmentError
		require.True(t, errors.As(err, &alignErr))
		assert.Greater(t, alignErr.Residual, 0.01)
		assert.Contains(t, alignErr.Error(), "inconsistent barcode matches")
	})

	t.Run("bad options", func(t *testing.T) {
		_, err := clock.Align(master, master, clock.Options{})

		var invErr *model.InvalidInputError
		require.True(t, errors.As(err, &invErr))
	})
}

func TestMatchSearchWindow(t *testing.T) {
	// Barcode counter wrapped: value 1 appears twice on the master clock.
	master := []barcode.Event{{Time: 10, Value: 1}, {Time: 40, Value: 2}, {Time: 1010, Value: 1}}
	probe := []barcode.Event{{Time: 1009, Value: 1}, {Time: 39, Value: 2}}

	pairs := clock.Match(master, probe, 5)
	require.Len(t, pairs, 2)
	assert.Equal(t, 1010.0, pairs[0].Master)
	assert.Equal(t, 40.0, pairs[1].Master)

	assert.Empty(t, clock.Match(master, []barcode.Event{{Time: 500, Value: 2}}, 5))
}

func TestClockMapHelpers(t *testing.T) {
	m := clock.ClockMap{Offset: 2, Scale: 1.0001}

	assert.InDelta(t, 1002.1, m.Apply(1000), 1e-9)
	assert.InDelta(t, 1000, m.Invert(m.Apply(1000)), 1e-9)
	assert.Equal(t, []float64{2, m.Apply(10)}, m.ApplyAll([]float64{0, 10}))
	assert.InDelta(t, 30000/1.0001, m.SampleRate(30000), 1e-9)
	assert.InDelta(t, 100, m.DriftPPM(), 1e-6)
}
