package rfmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/ephys-qc/internal/rfmap"
)

func TestBuild(t *testing.T) {
	xs := []float64{-20, 0, 20}
	ys := []float64{-10, 10}
	oris := []float64{0, 90}

	var (
		onsets []float64
		stims  []rfmap.Stimulus
		spikes []float64
	)
	onset := 1.0
	for rep := 0; rep < 3; rep++ {
		for _, y := range ys {
			for _, x := range xs {
				for _, o := range oris {
					onsets = append(onsets, onset)
					stims = append(stims, rfmap.Stimulus{X: x, Y: y, Ori: o})
					// Spike before the latency never counts.
					spikes = append(spikes, onset+0.01)
					// The unit fires 4 spikes for (x=20, y=10, ori=90) and
					// 1 spike otherwise, inside the response window.
					n := 1
					if x == 20 && y == 10 && o == 90 {
						n = 4
					}
					for k := 0; k < n; k++ {
						spikes = append(spikes, onset+0.05+0.01*float64(k))
					}
					onset += 0.25
				}
			}
		}
	}

	m, err := rfmap.Build(spikes, onsets, stims, rfmap.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, xs, m.Xs)
	assert.Equal(t, ys, m.Ys)
	assert.Equal(t, oris, m.Oris)
	assert.Equal(t, 12.0, m.Response[1][2][1])
	assert.Equal(t, 3.0, m.Response[0][0][0])

	y, x, ori := m.Peak()
	assert.Equal(t, 10.0, y)
	assert.Equal(t, 20.0, x)
	assert.Equal(t, 90.0, ori)

	spatial := m.Spatial()
	assert.Equal(t, 15.0, spatial[1][2])
	assert.Equal(t, 6.0, spatial[0][1])
}

func TestBuildErrors(t *testing.T) {
	_, err := rfmap.Build(nil, []float64{1}, nil, rfmap.DefaultParams())
	require.Error(t, err)

	_, err = rfmap.Build(nil, nil, nil, rfmap.DefaultParams())
	require.Error(t, err)

	_, err = rfmap.Build(nil, []float64{2, 1}, []rfmap.Stimulus{{}, {}}, rfmap.DefaultParams())
	require.Error(t, err)
}
