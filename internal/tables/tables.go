// Package tables reads the unit and trial tables produced by upstream
// spike sorting and stimulus tooling.
package tables

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/rickgao/ephys-qc/internal/model"
	"github.com/rickgao/ephys-qc/internal/rfmap"
	"github.com/rickgao/ephys-qc/internal/trial"
)

type unitRecord struct {
	ID          string    `yaml:"id"`
	Probe       string    `yaml:"probe"`
	PeakChannel int       `yaml:"peak_channel"`
	SNR         float64   `yaml:"snr"`
	Quality     string    `yaml:"quality"`
	Times       []float64 `yaml:"times"`
}

type unitFile struct {
	Units []unitRecord `yaml:"units"`
}

// Trials holds trial boundaries as stimulus frame indices.
type Trials struct {
	StartFrames  []int    `yaml:"start_frames"`
	EndFrames    []int    `yaml:"end_frames"`
	ChangeFrames []int    `yaml:"change_frames"` // Negative = no change on that trial
	Outcomes     []string `yaml:"outcomes"`
}

// Mapping holds receptive-field flashes, one entry per flash.
type Mapping struct {
	OnsetFrames []int     `yaml:"onset_frames"`
	X           []float64 `yaml:"x"`
	Y           []float64 `yaml:"y"`
	Ori         []float64 `yaml:"ori"`
}

// LoadUnits reads a unit table. Spike times are on the probe clock.
func LoadUnits(path string) ([]model.Unit, error) {
	var f unitFile
	if err := decode(path, &f); err != nil {
		return nil, err
	}

	units := make([]model.Unit, len(f.Units))
	for i, r := range f.Units {
		if r.ID == "" {
			return nil, fmt.Errorf("units[%d].id is required", i)
		}
		if r.Probe == "" {
			return nil, fmt.Errorf("units[%d].probe is required", i)
		}
		if !slices.IsSorted(r.Times) {
			return nil, fmt.Errorf("units[%d].times must be ascending", i)
		}
		units[i] = model.Unit{
			ID:          r.ID,
			Probe:       r.Probe,
			PeakChannel: r.PeakChannel,
			SNR:         r.SNR,
			Quality:     r.Quality,
			Times:       r.Times,
		}
	}
	return units, nil
}

// ByProbe groups units by probe name, keeping their order.
func ByProbe(units []model.Unit) map[string][]model.Unit {
	out := make(map[string][]model.Unit)
	for _, u := range units {
		out[u.Probe] = append(out[u.Probe], u)
	}
	return out
}

// LoadTrials reads a trial table.
func LoadTrials(path string) (*Trials, error) {
	var t Trials
	if err := decode(path, &t); err != nil {
		return nil, err
	}

	n := len(t.StartFrames)
	if len(t.EndFrames) != n {
		return nil, fmt.Errorf("end_frames has %d entries, want %d", len(t.EndFrames), n)
	}
	if t.ChangeFrames != nil && len(t.ChangeFrames) != n {
		return nil, fmt.Errorf("change_frames has %d entries, want %d", len(t.ChangeFrames), n)
	}
	if t.Outcomes != nil && len(t.Outcomes) != n {
		return nil, fmt.Errorf("outcomes has %d entries, want %d", len(t.Outcomes), n)
	}
	return &t, nil
}

// Table converts frame indices to a trial table using per-frame display times.
func (t *Trials) Table(frameTimes []float64) (trial.Table, error) {
	return trial.FromFrames(frameTimes, t.StartFrames, t.EndFrames, t.Outcomes)
}

// ChangeTimes returns the display time of every change. A change requested
// on frame f appears on frame f+1.
func (t *Trials) ChangeTimes(frameTimes []float64) ([]float64, error) {
	var out []float64
	for i, f := range t.ChangeFrames {
		if f < 0 {
			continue
		}
		if f+1 >= len(frameTimes) {
			return nil, model.Invalid("change_frames", "trial %d change frame %d outside %d frame times", i, f, len(frameTimes))
		}
		out = append(out, frameTimes[f+1])
	}
	return out, nil
}

// LoadMapping reads a receptive-field mapping table.
func LoadMapping(path string) (*Mapping, error) {
	var m Mapping
	if err := decode(path, &m); err != nil {
		return nil, err
	}

	n := len(m.OnsetFrames)
	for _, col := range []struct {
		name string
		len  int
	}{{"x", len(m.X)}, {"y", len(m.Y)}, {"ori", len(m.Ori)}} {
		if col.len != n {
			return nil, fmt.Errorf("%s has %d entries, want %d", col.name, col.len, n)
		}
	}
	if !slices.IsSorted(m.OnsetFrames) {
		return nil, errors.New("onset_frames must be ascending")
	}
	return &m, nil
}

// Onsets returns the display time of every flash.
func (m *Mapping) Onsets(frameTimes []float64) ([]float64, error) {
	out := make([]float64, len(m.OnsetFrames))
	for i, f := range m.OnsetFrames {
		if f < 0 || f >= len(frameTimes) {
			return nil, model.Invalid("onset_frames", "flash %d frame %d outside %d frame times", i, f, len(frameTimes))
		}
		out[i] = frameTimes[f]
	}
	return out, nil
}

// Stimuli returns the flash conditions in table order.
func (m *Mapping) Stimuli() []rfmap.Stimulus {
	out := make([]rfmap.Stimulus, len(m.OnsetFrames))
	for i := range out {
		out[i] = rfmap.Stimulus{X: m.X[i], Y: m.Y[i], Ori: m.Ori[i]}
	}
	return out
}

func decode(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse table %s: %w", path, err)
	}
	return nil
}
