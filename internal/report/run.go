package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/ephys-qc/internal/barcode"
	"github.com/rickgao/ephys-qc/internal/lims"
	"github.com/rickgao/ephys-qc/internal/model"
	"github.com/rickgao/ephys-qc/internal/population"
	"github.com/rickgao/ephys-qc/internal/rfmap"
	"github.com/rickgao/ephys-qc/internal/triggered"
	"github.com/rickgao/ephys-qc/internal/vsync"
)

// Run is the summary of one QC invocation.
type Run struct {
	ID            string                         `json:"id"`
	Name          string                         `json:"name"`
	Version       string                         `json:"version"`
	Started       time.Time                      `json:"started"`
	Finished      time.Time                      `json:"finished"`
	Session       *lims.Session                  `json:"session,omitempty"`
	SpecimenID    int64                          `json:"specimen_id,omitempty"`
	Barcodes      map[string]BarcodeStats        `json:"barcodes"`
	Sync          map[string]Registration        `json:"sync"`
	VSync         *vsync.Report                  `json:"vsync,omitempty"`
	LickTriggered map[string]TriggeredSummary    `json:"lick_triggered,omitempty"`
	Population    map[string]population.Response `json:"population,omitempty"`
	LickResponse  map[string]population.Response `json:"lick_response,omitempty"`
	RFMaps        map[string][]RFPeak            `json:"rf_maps,omitempty"`
	Errors        []StageError                   `json:"errors,omitempty"`
}

// StageError is a failure recorded against one stage of the run.
type StageError struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// BarcodeStats summarizes decoding of one barcode line.
type BarcodeStats struct {
	Decoded      int     `json:"decoded"`
	Skipped      int     `json:"skipped"`
	MeanInterval float64 `json:"mean_interval"`
	MaxInterval  float64 `json:"max_interval"`
}

// TriggeredSummary summarizes a triggered average without its samples.
type TriggeredSummary struct {
	Events     int       `json:"events"`
	Samples    int       `json:"samples"`
	PeakToPeak []float64 `json:"peak_to_peak"` // Per channel, in output units
}

// RFPeak is the preferred mapping condition of one unit.
type RFPeak struct {
	Unit   string  `json:"unit"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Ori    float64 `json:"ori"`
	Spikes float64 `json:"spikes"` // Spikes at the peak condition
	Total  float64 `json:"total"`  // Spikes over all conditions
}

// NewRun starts a run with a fresh id.
func NewRun(name, version string) *Run {
	return &Run{
		ID:            uuid.NewString(),
		Name:          name,
		Version:       version,
		Started:       time.Now().UTC(),
		Barcodes:      make(map[string]BarcodeStats),
		Sync:          make(map[string]Registration),
		LickTriggered: make(map[string]TriggeredSummary),
		Population:    make(map[string]population.Response),
		LickResponse:  make(map[string]population.Response),
		RFMaps:        make(map[string][]RFPeak),
	}
}

// Fail records a stage failure.
func (r *Run) Fail(stage string, err error) {
	r.Errors = append(r.Errors, StageError{Stage: stage, Error: err.Error()})
}

// Finish stamps the finish time.
func (r *Run) Finish() {
	r.Finished = time.Now().UTC()
}

// WriteJSON writes the run as indented JSON.
func (r *Run) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	return nil
}

// Barcodes summarizes decoded events and the barcodes skipped as malformed.
func Barcodes(events []barcode.Event, skipped []*model.DecodeError) BarcodeStats {
	s := BarcodeStats{Decoded: len(events), Skipped: len(skipped)}
	iv := barcode.Intervals(events)
	if len(iv) == 0 {
		return s
	}
	var sum float64
	for _, v := range iv {
		sum += v
		s.MaxInterval = math.Max(s.MaxInterval, v)
	}
	s.MeanInterval = sum / float64(len(iv))
	return s
}

// Triggered summarizes a triggered average.
func Triggered(res triggered.Result) TriggeredSummary {
	s := TriggeredSummary{Events: len(res.Used), Samples: len(res.Average)}
	if len(res.Average) == 0 {
		return s
	}
	nch := len(res.Average[0])
	lo := make([]float64, nch)
	hi := make([]float64, nch)
	for ch := range lo {
		lo[ch], hi[ch] = math.Inf(1), math.Inf(-1)
	}
	for _, row := range res.Average {
		for ch, v := range row {
			lo[ch] = math.Min(lo[ch], v)
			hi[ch] = math.Max(hi[ch], v)
		}
	}
	s.PeakToPeak = make([]float64, nch)
	for ch := range lo {
		s.PeakToPeak[ch] = hi[ch] - lo[ch]
	}
	return s
}

// Peak summarizes a unit's receptive-field map.
func Peak(unit string, m rfmap.Map) RFPeak {
	y, x, ori := m.Peak()
	p := RFPeak{Unit: unit, X: x, Y: y, Ori: ori}
	for yi, row := range m.Response {
		for xi, oris := range row {
			for oi, v := range oris {
				p.Total += v
				if m.Ys[yi] == y && m.Xs[xi] == x && m.Oris[oi] == ori {
					p.Spikes = v
				}
			}
		}
	}
	return p
}
