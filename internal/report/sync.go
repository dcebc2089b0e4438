package report

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/ephys-qc/internal/barcode"
	"github.com/rickgao/ephys-qc/internal/clock"
)

// ProbeEvents are the barcodes decoded from one probe's sync line.
type ProbeEvents struct {
	Events      []barcode.Event
	NominalRate float64 // Nominal sample rate on the probe clock (Hz)
}

// Registration is one probe's fitted clock relative to the master.
type Registration struct {
	Map        clock.ClockMap `json:"-"`
	Shift      float64        `json:"shift"`       // Master time at probe time zero (s)
	SampleRate float64        `json:"sample_rate"` // Probe sample rate on the master clock (Hz)
	DriftPPM   float64        `json:"drift_ppm"`
	Matched    int            `json:"matched"`
	Residual   float64        `json:"residual"`
	Error      string         `json:"error,omitempty"`
}

// OK reports whether the probe aligned.
func (r Registration) OK() bool {
	return r.Error == ""
}

// ProbeSync aligns every probe to the master barcodes concurrently. A probe
// that fails to align is recorded with its error and does not stop the
// others. The error is non-nil only when ctx is cancelled.
func ProbeSync(ctx context.Context, master []barcode.Event, probes map[string]ProbeEvents, opts clock.Options, logger *slog.Logger) (map[string]Registration, error) {
	if logger == nil {
		logger = slog.Default()
	}

	out := make(map[string]Registration, len(probes))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for name, p := range probes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			reg := register(master, p, opts)
			if !reg.OK() {
				logger.Warn("probe alignment failed", "probe", name, "err", reg.Error)
			} else {
				logger.Info("probe aligned",
					"probe", name,
					"shift", reg.Shift,
					"sample_rate", reg.SampleRate,
					"matched", reg.Matched,
					"residual", reg.Residual,
				)
			}

			mu.Lock()
			out[name] = reg
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func register(master []barcode.Event, p ProbeEvents, opts clock.Options) Registration {
	a, err := clock.AlignDetailed(master, p.Events, opts)
	if err != nil {
		return Registration{Error: err.Error()}
	}
	return Registration{
		Map:        a.Map,
		Shift:      a.Map.Offset,
		SampleRate: a.Map.SampleRate(p.NominalRate),
		DriftPPM:   a.Map.DriftPPM(),
		Matched:    a.Matched,
		Residual:   a.Residual,
	}
}
