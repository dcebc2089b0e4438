package population

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/ephys-qc/internal/model"
	"github.com/rickgao/ephys-qc/internal/psth"
)

// Config holds runner configuration.
type Config struct {
	Concurrency int     // Max units processed at once
	MinSpikes   int     // Units with fewer spikes are skipped
	Pre         float64 // Baseline before each change (s)
	Post        float64 // Response after each change (s)
	Sigma       float64 // Half-width of the smoothing boxcar (s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 8,
		MinSpikes:   3600,
		Pre:         0.05,
		Post:        0.55,
		Sigma:       0.005,
	}
}

// Response is a population-averaged spike density.
type Response struct {
	Mean       []float64 `json:"mean"`                 // Mean density across units (spikes/s)
	Normalized []float64 `json:"normalized,omitempty"` // Mean minus baseline, divided by its peak
	Edges      []float64 `json:"edges"`                // Bin edges relative to the event (s)
	Units      int       `json:"units"`                // Units averaged
	Skipped    int       `json:"skipped"`              // Units below MinSpikes
	Failed     int       `json:"failed"`               // Units whose density returned an error
}

// UnitDensity is one unit's density.
type UnitDensity struct {
	ID     string
	Result psth.Result
}

// Runner computes population responses.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new Runner.
func New(cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{cfg: cfg, logger: logger}
}

// ChangeResponses averages every unit's change response around changeTimes.
// The baseline for Normalized is the mean over the Pre window.
func (r *Runner) ChangeResponses(ctx context.Context, units []model.Unit, changeTimes []float64) (Response, error) {
	if len(changeTimes) == 0 {
		return Response{}, &model.InsufficientDataError{What: "change times", Have: 0, Need: 1}
	}

	densities, stats, err := r.run(ctx, units, func(spikes []float64) (psth.Result, error) {
		return psth.ChangeResponse(changeTimes, spikes, r.cfg.Pre, r.cfg.Post, r.cfg.Sigma)
	})
	if err != nil {
		return Response{}, err
	}

	resp := average(densities, stats)
	if resp.Units > 0 {
		nPre := int(math.Round(r.cfg.Pre / psth.ChangeBinSize))
		resp.Normalized = normalize(resp.Mean, nPre)
	}
	return resp, nil
}

// Densities returns each eligible unit's density around events, in unit order.
func (r *Runner) Densities(ctx context.Context, units []model.Unit, events []float64, p psth.Params) ([]UnitDensity, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	densities, _, err := r.run(ctx, units, func(spikes []float64) (psth.Result, error) {
		return psth.Density(spikes, events, p)
	})
	if err != nil {
		return nil, err
	}

	var out []UnitDensity
	for i, d := range densities {
		if d != nil {
			out = append(out, UnitDensity{ID: units[i].ID, Result: *d})
		}
	}
	return out, nil
}

// Mean averages unit densities into a population response. All densities
// must share the same bins.
func Mean(ds []UnitDensity) Response {
	results := make([]*psth.Result, len(ds))
	for i := range ds {
		results[i] = &ds[i].Result
	}
	return average(results, runStats{})
}

type runStats struct {
	skipped, failed int
}

// run applies fn to every unit with bounded concurrency. The result slice is
// indexed like units; skipped and failed units leave a nil entry.
func (r *Runner) run(ctx context.Context, units []model.Unit, fn func([]float64) (psth.Result, error)) ([]*psth.Result, runStats, error) {
	start := time.Now()

	results := make([]*psth.Result, len(units))
	var skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, u := range units {
		if len(u.Times) < r.cfg.MinSpikes {
			skipped.Add(1)
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := fn(u.Times)
			if err != nil {
				r.logger.Warn("failed to compute unit density",
					"unit", u.ID,
					"probe", u.Probe,
					"err", err,
				)
				failed.Add(1)
				return nil
			}
			results[i] = &res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, runStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, runStats{}, err
	}

	stats := runStats{skipped: int(skipped.Load()), failed: int(failed.Load())}
	r.logger.Info("population densities complete",
		"units", len(units),
		"skipped", stats.skipped,
		"failed", stats.failed,
		"duration", time.Since(start),
	)
	return results, stats, nil
}

func average(densities []*psth.Result, stats runStats) Response {
	resp := Response{Skipped: stats.skipped, Failed: stats.failed}
	for _, d := range densities {
		if d == nil {
			continue
		}
		if resp.Mean == nil {
			resp.Mean = make([]float64, len(d.Density))
			resp.Edges = d.Edges
		}
		for i, v := range d.Density {
			resp.Mean[i] += v
		}
		resp.Units++
	}
	for i := range resp.Mean {
		resp.Mean[i] /= float64(resp.Units)
	}
	return resp
}

// normalize subtracts the mean of the first nPre bins and divides by the
// peak of the result. It returns nil when there is no positive peak.
func normalize(mean []float64, nPre int) []float64 {
	nPre = min(max(nPre, 1), len(mean))

	var baseline float64
	for _, v := range mean[:nPre] {
		baseline += v
	}
	baseline /= float64(nPre)

	out := make([]float64, len(mean))
	peak := math.Inf(-1)
	for i, v := range mean {
		out[i] = v - baseline
		peak = max(peak, out[i])
	}
	if peak <= 0 {
		return nil
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}
