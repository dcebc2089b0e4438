package barcode_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/ephys-qc/internal/barcode"
	"github.com/rickgao/ephys-qc/internal/model"
)

func TestExtractFixture(t *testing.T) {
	p := barcode.Protocol{BitDuration: 0.2, GapThreshold: 2.0, Bits: 3}

	events, err := barcode.Extract(
		[]float64{0.0, 1.0, 2.0},
		[]float64{0.1, 1.1, 2.3},
		p,
	)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// Widths 0.1, 0.1, 0.3 -> bits 0,0,1 (LSB first) -> 4.
	assert.Equal(t, uint64(4), events[0].Value)
	assert.Equal(t, 0.0, events[0].Time)
}

func TestRoundTrip(t *testing.T) {
	p := barcode.DefaultProtocol()
	rng := rand.New(rand.NewPCG(1, 2))

	var want []barcode.Event
	for i := 0; i < 50; i++ {
		want = append(want, barcode.Event{
			Time:  10 + float64(i)*30 + rng.Float64(),
			Value: rng.Uint64N(1 << 32),
		})
	}

	rising, falling, err := barcode.Encode(want, p)
	require.NoError(t, err)

	got, err := barcode.Extract(rising, falling, p)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Value, got[i].Value, "barcode %d", i)
		assert.InDelta(t, want[i].Time, got[i].Time, 1e-12, "barcode %d", i)
	}
}

func TestRoundTripBoundaryWidths(t *testing.T) {
	tests := []struct {
		name      string
		bits      int
		zeroWidth float64
		oneWidth  float64
	}{
		{name: "minimum widths", bits: 1, zeroWidth: 1e-6, oneWidth: 0.03},
		{name: "maximum widths", bits: 63, zeroWidth: 0.0299, oneWidth: 0.06},
		{name: "mixed", bits: 16, zeroWidth: 1e-6, oneWidth: 0.06},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := barcode.Protocol{BitDuration: 0.03, GapThreshold: 1.0, Bits: tt.bits}
			enc := barcode.Encoder{Protocol: p, ZeroWidth: tt.zeroWidth, OneWidth: tt.oneWidth, Period: 0.075}

			top := uint64(1)<<uint(tt.bits) - 1
			want := []barcode.Event{
				{Time: 5, Value: 0},
				{Time: 15, Value: top},
				{Time: 25, Value: top / 3},
				{Time: 35, Value: 1},
			}

			rising, falling, err := enc.Encode(want)
			require.NoError(t, err)

			got, err := barcode.Extract(rising, falling, p)
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].Value, got[i].Value)
			}
		})
	}
}

func TestExtractErrors(t *testing.T) {
	p := barcode.Protocol{BitDuration: 0.2, GapThreshold: 2.0, Bits: 3}

	t.Run("count mismatch", func(t *testing.T) {
		_, err := barcode.Extract([]float64{0, 1, 2}, []float64{0.1, 1.1}, p)
		var decErr *model.DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, 3, decErr.Rising)
		assert.Equal(t, 2, decErr.Falling)
	})

	t.Run("wrong bit count", func(t *testing.T) {
		_, err := barcode.Extract([]float64{0, 1}, []float64{0.1, 1.1}, p)
		var decErr *model.DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, 2, decErr.Bits)
		assert.Equal(t, 3, decErr.Want)
	})

	t.Run("pulse too long", func(t *testing.T) {
		_, err := barcode.Extract([]float64{0, 1, 2}, []float64{0.1, 1.5, 2.1}, p)
		var decErr *model.DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, "pulse too long", decErr.Reason)
	})

	t.Run("edges out of order", func(t *testing.T) {
		_, err := barcode.Extract([]float64{0, 0.05}, []float64{0.1, 0.2}, p)
		var decErr *model.DecodeError
		require.True(t, errors.As(err, &decErr))
	})

	t.Run("bad protocol", func(t *testing.T) {
		_, err := barcode.Extract(nil, nil, barcode.Protocol{BitDuration: 0.2, GapThreshold: 0.3, Bits: 3})
		var invErr *model.InvalidInputError
		require.True(t, errors.As(err, &invErr))
		assert.Equal(t, "gap_threshold", invErr.Param)
	})
}

func TestExtractAllSkipsPartialBarcodes(t *testing.T) {
	p := barcode.DefaultProtocol()
	want := []barcode.Event{{Time: 10, Value: 7}, {Time: 40, Value: 8}, {Time: 70, Value: 9}}

	rising, falling, err := barcode.Encode(want, p)
	require.NoError(t, err)

	// Recording started partway through the first barcode.
	rising, falling = rising[5:], falling[5:]

	events, skipped, err := barcode.ExtractAll(rising, falling, p)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, p.Bits-5, skipped[0].Bits)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(8), events[0].Value)
	assert.Equal(t, uint64(9), events[1].Value)

	_, err = barcode.Extract(rising, falling, p)
	require.Error(t, err)
}

func TestEncodeRejectsOverflow(t *testing.T) {
	p := barcode.Protocol{BitDuration: 0.2, GapThreshold: 2.0, Bits: 3}
	_, _, err := barcode.Encode([]barcode.Event{{Time: 0, Value: 8}}, p)
	require.Error(t, err)
}

func TestIntervals(t *testing.T) {
	events := []barcode.Event{{Time: 1}, {Time: 31}, {Time: 62.5}}
	assert.Equal(t, []float64{30, 31.5}, barcode.Intervals(events))
	assert.Nil(t, barcode.Intervals(events[:1]))
}
