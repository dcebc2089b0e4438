package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rickgao/ephys-qc/internal/barcode"
	"github.com/rickgao/ephys-qc/internal/clock"
	"github.com/rickgao/ephys-qc/internal/config"
	"github.com/rickgao/ephys-qc/internal/edfsource"
	"github.com/rickgao/ephys-qc/internal/lims"
	"github.com/rickgao/ephys-qc/internal/model"
	"github.com/rickgao/ephys-qc/internal/population"
	"github.com/rickgao/ephys-qc/internal/psth"
	"github.com/rickgao/ephys-qc/internal/report"
	"github.com/rickgao/ephys-qc/internal/rfmap"
	"github.com/rickgao/ephys-qc/internal/tables"
	"github.com/rickgao/ephys-qc/internal/trial"
	"github.com/rickgao/ephys-qc/internal/triggered"
	"github.com/rickgao/ephys-qc/internal/version"
	"github.com/rickgao/ephys-qc/internal/vsync"
)

// pipeline runs every QC stage for one session.
type pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	lims   *lims.Client // nil when LIMS is disabled
}

// behavior holds the master-clock event streams shared by later stages.
type behavior struct {
	frames  []float64 // Stimulus frame times
	licks   []float64 // Lick onsets, rewarded bouts only when trials are known
	trials  trial.Table
	changes []float64 // Image change display times
	units   map[string][]model.Unit
	flashes []float64 // Receptive-field flash onsets
	stims   []rfmap.Stimulus
}

// run executes the pipeline. Stage failures are recorded on the returned
// Run; the error is non-nil only when the master sync line cannot be used
// or ctx ends.
func (p *pipeline) run(ctx context.Context) (*report.Run, error) {
	run := report.NewRun(p.cfg.Run.Name, version.Short())
	defer run.Finish()

	p.lookupSession(ctx, run)

	protocol := barcode.Protocol{
		BitDuration:  p.cfg.Barcode.BitDuration,
		GapThreshold: p.cfg.Barcode.GapThreshold,
		Bits:         p.cfg.Barcode.Bits,
	}

	master, err := p.decode(run, "sync", p.cfg.Sync.File, p.cfg.Sync.BarcodeChannel, p.cfg.Sync.SampleRate, p.cfg.Sync.Threshold, protocol)
	if err != nil {
		return nil, fmt.Errorf("decode sync barcodes: %w", err)
	}

	probes := make(map[string]report.ProbeEvents, len(p.cfg.Probes))
	for _, pc := range p.cfg.Probes {
		events, err := p.decode(run, pc.Name, pc.File, pc.BarcodeChannel, pc.SampleRate, pc.Threshold, protocol)
		if err != nil {
			run.Fail("barcode "+pc.Name, err)
			continue
		}
		probes[pc.Name] = report.ProbeEvents{Events: events, NominalRate: pc.SampleRate}
	}

	opts := clock.Options{
		SearchWindow: p.cfg.Alignment.SearchWindow,
		MaxDriftPPM:  p.cfg.Alignment.MaxDriftPPM,
		MaxResidual:  p.cfg.Alignment.MaxResidual,
	}
	regs, err := report.ProbeSync(ctx, master, probes, opts, p.logger)
	if err != nil {
		return nil, err
	}
	run.Sync = regs

	b := p.loadBehavior(run)

	for _, pc := range p.cfg.Probes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reg, ok := regs[pc.Name]
		if !ok || !reg.OK() {
			continue
		}
		if pc.LFP != nil && len(b.licks) > 0 {
			if err := p.lickTriggered(run, pc, reg.Map, b.licks); err != nil {
				run.Fail("lick triggered "+pc.Name, err)
			}
		}
		if units := b.units[pc.Name]; len(units) > 0 {
			if err := p.population(ctx, run, pc.Name, reg.Map, units, b); err != nil {
				run.Fail("population "+pc.Name, err)
			}
		}
	}

	return run, nil
}

func (p *pipeline) lookupSession(ctx context.Context, run *report.Run) {
	if p.lims == nil {
		return
	}
	if id := p.cfg.Run.SessionID; id != 0 {
		s, err := p.lims.EcephysSession(ctx, id)
		if err != nil {
			run.Fail("lims", err)
		} else {
			run.Session = s
		}
	}
	if mouse := p.cfg.Run.MouseID; mouse != "" {
		id, err := p.lims.SpecimenID(ctx, mouse)
		if err != nil {
			run.Fail("lims", err)
		} else {
			run.SpecimenID = id
		}
	}
}

// decode reads one barcode line and records its decode statistics.
func (p *pipeline) decode(run *report.Run, name, path string, channel int, rate, threshold float64, protocol barcode.Protocol) ([]barcode.Event, error) {
	rising, falling, err := readEdges(path, channel, rate, threshold)
	if err != nil {
		return nil, err
	}

	events, skipped, err := barcode.ExtractAll(rising, falling, protocol)
	if err != nil {
		return nil, err
	}
	for _, d := range skipped {
		p.logger.Debug("skipped malformed barcode", "line", name, "err", d)
	}

	run.Barcodes[name] = report.Barcodes(events, skipped)
	p.logger.Info("barcodes decoded",
		"line", name,
		"decoded", len(events),
		"skipped", len(skipped),
	)
	return events, nil
}

// loadBehavior reads the optional vsync and lick lines and the upstream
// tables. Missing inputs leave the matching fields empty.
func (p *pipeline) loadBehavior(run *report.Run) behavior {
	var b behavior
	sc := p.cfg.Sync

	if sc.VsyncChannel != nil {
		_, falling, err := readEdges(sc.File, *sc.VsyncChannel, sc.SampleRate, sc.Threshold)
		if err != nil {
			run.Fail("vsync", err)
		} else {
			b.frames = falling
			rep, err := vsync.Summarize(b.frames)
			if err != nil {
				run.Fail("vsync", err)
			} else {
				run.VSync = &rep
			}
		}
	}

	if sc.LickChannel != nil {
		rising, _, err := readEdges(sc.File, *sc.LickChannel, sc.SampleRate, sc.Threshold)
		if err != nil {
			run.Fail("licks", err)
		} else {
			b.licks = rising
		}
	}

	in := p.cfg.Inputs
	if in.Units == "" || len(b.frames) == 0 {
		return b
	}

	trials, err := tables.LoadTrials(in.Trials)
	if err != nil {
		run.Fail("trials", err)
		return b
	}
	if b.trials, err = trials.Table(b.frames); err != nil {
		run.Fail("trials", err)
		return b
	}
	if b.changes, err = trials.ChangeTimes(b.frames); err != nil {
		run.Fail("trials", err)
	}

	if len(b.licks) > 0 {
		rewarded, err := trial.RewardedLicks(b.licks, b.trials, p.cfg.Triggered.MinInterLick)
		if err != nil {
			run.Fail("licks", err)
		} else {
			b.licks = rewarded
		}
	}

	if in.Mapping != "" {
		mapping, err := tables.LoadMapping(in.Mapping)
		if err == nil {
			b.flashes, err = mapping.Onsets(b.frames)
			b.stims = mapping.Stimuli()
		}
		if err != nil {
			run.Fail("mapping", err)
			b.flashes, b.stims = nil, nil
		}
	}

	units, err := tables.LoadUnits(in.Units)
	if err != nil {
		run.Fail("units", err)
		return b
	}
	b.units = tables.ByProbe(units)
	return b
}

// lickTriggered averages a probe's LFP around lick bouts.
func (p *pipeline) lickTriggered(run *report.Run, pc config.ProbeConfig, m clock.ClockMap, licks []float64) error {
	f, err := os.Open(pc.LFP.File)
	if err != nil {
		return fmt.Errorf("open lfp: %w", err)
	}
	defer f.Close()

	sig, err := edfsource.ReadChannels(f, pc.LFP.Channels, pc.LFP.SampleRate, 0)
	if err != nil {
		return err
	}
	sig.Times = m.ApplyAll(sig.Times)

	tc := p.cfg.Triggered
	opts := triggered.LickOptions{
		Options: triggered.Options{
			Before:        tc.Before,
			After:         tc.After,
			MaxIntervalCV: tc.MaxIntervalCV,
			Demean:        true,
			Gain:          tc.Gain,
		},
		NumLicks:     tc.NumLicks,
		MinInterLick: tc.MinInterLick,
	}
	if r := pc.LFP.Reference; r != nil {
		opts.Reference = &triggered.ChannelRange{Lo: r[0], Hi: r[1]}
	}

	res, err := triggered.LickTriggered(licks, sig, opts)
	if err != nil {
		return err
	}
	run.LickTriggered[pc.Name] = report.Triggered(res)
	return nil
}

// population maps a probe's units onto the master clock and averages their
// change and lick responses.
func (p *pipeline) population(ctx context.Context, run *report.Run, probe string, m clock.ClockMap, units []model.Unit, b behavior) error {
	pc := p.cfg.Population

	mapped := make([]model.Unit, len(units))
	for i, u := range units {
		mapped[i] = u
		mapped[i].Times = m.ApplyAll(u.Times)
	}

	selected, err := population.SelectUnits(mapped, pc.MinSNR, pc.Percentile)
	if err != nil {
		return err
	}
	p.logger.Info("units selected", "probe", probe, "units", len(units), "selected", len(selected))

	runner := population.New(population.Config{
		Concurrency: pc.Concurrency,
		MinSpikes:   pc.MinSpikes,
		Pre:         pc.Pre,
		Post:        pc.Post,
		Sigma:       pc.Sigma,
	}, p.logger.With("probe", probe))

	if len(b.changes) > 0 {
		resp, err := runner.ChangeResponses(ctx, selected, b.changes)
		if err != nil {
			return fmt.Errorf("change responses: %w", err)
		}
		run.Population[probe] = resp
	}

	if len(b.licks) > 0 {
		params := psth.Params{
			Window:      p.cfg.PSTH.Window,
			BinSize:     p.cfg.PSTH.BinSize,
			KernelWidth: p.cfg.PSTH.KernelWidth,
		}
		ds, err := runner.Densities(ctx, selected, b.licks, params)
		if err != nil {
			return fmt.Errorf("lick responses: %w", err)
		}
		run.LickResponse[probe] = population.Mean(ds)
	}

	if len(b.flashes) > 0 {
		p.receptiveFields(run, probe, selected, b)
	}
	return nil
}

// receptiveFields maps each selected unit against the mapping flashes.
// A unit whose map cannot be built is logged and left out.
func (p *pipeline) receptiveFields(run *report.Run, probe string, units []model.Unit, b behavior) {
	params := rfmap.Params{
		Latency:        p.cfg.RFMap.Latency,
		ResponseWindow: p.cfg.RFMap.ResponseWindow,
	}
	peaks := make([]report.RFPeak, 0, len(units))
	for _, u := range units {
		m, err := rfmap.Build(u.Times, b.flashes, b.stims, params)
		if err != nil {
			p.logger.Warn("rf map failed", "probe", probe, "unit", u.ID, "err", err)
			continue
		}
		peaks = append(peaks, report.Peak(u.ID, m))
	}
	run.RFMaps[probe] = peaks
}

func readEdges(path string, channel int, rate, threshold float64) (rising, falling []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rising, falling, err = edfsource.ReadEdges(f, channel, rate, 0, threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rising, falling, nil
}
