package triggered_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/ephys-qc/internal/model"
	"github.com/rickgao/ephys-qc/internal/triggered"
)

// sawtooth returns a 1 kHz signal over [0, seconds] whose channel 0 counts
// samples modulo 1000 and whose other channels are zero.
func sawtooth(seconds float64, channels int) model.Signal {
	n := int(seconds*1000) + 1
	sig := model.Signal{Samples: make([][]float64, n), Times: make([]float64, n)}
	for i := range sig.Times {
		sig.Times[i] = float64(i) / 1000
		sig.Samples[i] = make([]float64, channels)
		sig.Samples[i][0] = float64(i % 1000)
	}
	return sig
}

func TestAverageExcludesEdgeEvents(t *testing.T) {
	sig := sawtooth(10, 1)
	events := []float64{-1, 0.2, 0.5, 5.5, 9.5, 9.6, 9.9, 11}

	res, err := triggered.Average(sig, events, triggered.Options{Before: 0.5, After: 0.5})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 5.5, 9.5}, res.Used)
	assert.Len(t, res.Used, len(events)-5)
	require.Len(t, res.Average, 1000)
	require.Len(t, res.Time, 1000)
	assert.InDelta(t, -0.5, res.Time[0], 1e-12)
	assert.InDelta(t, 0.5, res.Time[999], 1e-12)

	// Every window starts on an integer second.
	assert.InDelta(t, 0, res.Average[0][0], 1e-9)
	assert.InDelta(t, 500, res.Average[500][0], 1e-9)
	assert.InDelta(t, 999, res.Average[999][0], 1e-9)
}

func TestAverageGainAndSnippets(t *testing.T) {
	sig := sawtooth(10, 2)

	res, err := triggered.Average(sig, []float64{2, 3, 4}, triggered.Options{
		Before:       0.1,
		After:        0.1,
		Gain:         0.5,
		KeepSnippets: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Snippets, 3)
	require.Len(t, res.Snippets[0], 200)
	assert.InDelta(t, 450, res.Average[0][0], 1e-9)
	assert.InDelta(t, 450, res.Snippets[2][0][0], 1e-9)
	assert.Zero(t, res.Average[0][1])
}

func TestAverageReferenceRemoval(t *testing.T) {
	n := 5001
	sig := model.Signal{Samples: make([][]float64, n), Times: make([]float64, n)}
	rng := rand.New(rand.NewPCG(1, 1))
	for i := range sig.Times {
		sig.Times[i] = float64(i) / 1000
		artifact := rng.NormFloat64() * 100
		signal := float64(i % 1000)
		sig.Samples[i] = []float64{signal + artifact, artifact, artifact, artifact}
	}

	res, err := triggered.Average(sig, []float64{1, 2, 3}, triggered.Options{
		Before:    0.2,
		After:     0.2,
		Reference: &triggered.ChannelRange{Lo: 2, Hi: 4},
	})
	require.NoError(t, err)

	for k, row := range res.Average {
		require.InDelta(t, float64((800+k)%1000), row[0], 1e-9)
		require.InDelta(t, 0, row[1], 1e-9)
	}
}

func TestAverageDemean(t *testing.T) {
	sig := sawtooth(8, 1)
	for i, row := range sig.Samples {
		row[0] += 1000
		if i > 4000 {
			row[0] = 1e6
		}
	}

	res, err := triggered.Average(sig, []float64{2}, triggered.Options{Before: 0.001, After: 0.001, Demean: true})
	require.NoError(t, err)

	// Samples 0..2001 only; the tail after the last window does not count.
	mean := 1000 + (2*499500.0+1)/2002
	assert.InDelta(t, 1999-mean, res.Average[0][0], 1e-6)
	assert.InDelta(t, 1000-mean, res.Average[1][0], 1e-6)
}

func TestAverageIrregularSampling(t *testing.T) {
	n := 2000
	sig := model.Signal{Samples: make([][]float64, n), Times: make([]float64, n)}
	rng := rand.New(rand.NewPCG(2, 2))
	tm := 0.0
	for i := range sig.Times {
		tm += 0.001 * (0.2 + rng.Float64()*1.6)
		sig.Times[i] = tm
		sig.Samples[i] = []float64{0}
	}

	_, err := triggered.Average(sig, []float64{1}, triggered.Options{Before: 0.1, After: 0.1})
	var irrErr *model.IrregularSamplingError
	require.True(t, errors.As(err, &irrErr))
	assert.Greater(t, irrErr.CV, triggered.DefaultMaxIntervalCV)
}

func TestAverageErrors(t *testing.T) {
	sig := sawtooth(2, 3)

	_, err := triggered.Average(sig, []float64{-5, 50}, triggered.Options{Before: 0.1, After: 0.1})
	var insErr *model.InsufficientDataError
	require.True(t, errors.As(err, &insErr))

	_, err = triggered.Average(sig, []float64{1}, triggered.Options{Before: -0.1, After: 0.1})
	var invErr *model.InvalidInputError
	require.True(t, errors.As(err, &invErr))

	_, err = triggered.Average(sig, []float64{1}, triggered.Options{Before: 0.1, After: 0.1, Reference: &triggered.ChannelRange{Lo: 2, Hi: 5}})
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "reference", invErr.Param)
}
