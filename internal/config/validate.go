package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Sync.File == "" {
		return errors.New("sync.file is required")
	}
	if c.Sync.SampleRate <= 0 {
		return errors.New("sync.sample_rate must be > 0")
	}
	if err := validateChannel("sync.barcode_channel", c.Sync.BarcodeChannel); err != nil {
		return err
	}
	if c.Sync.VsyncChannel != nil {
		if err := validateChannel("sync.vsync_channel", *c.Sync.VsyncChannel); err != nil {
			return err
		}
	}
	if c.Sync.LickChannel != nil {
		if err := validateChannel("sync.lick_channel", *c.Sync.LickChannel); err != nil {
			return err
		}
	}

	if len(c.Probes) == 0 {
		return errors.New("probes is required")
	}
	seen := make(map[string]bool, len(c.Probes))
	for i := range c.Probes {
		p := &c.Probes[i]
		prefix := fmt.Sprintf("probes[%d]", i)
		if err := p.validate(prefix); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("%s.name %q is duplicated", prefix, p.Name)
		}
		seen[p.Name] = true
	}

	if c.Barcode.BitDuration <= 0 {
		return errors.New("barcode.bit_duration must be > 0")
	}
	if c.Barcode.GapThreshold <= 2*c.Barcode.BitDuration {
		return fmt.Errorf("barcode.gap_threshold (%g) must exceed two bit durations (%g)", c.Barcode.GapThreshold, 2*c.Barcode.BitDuration)
	}
	if c.Barcode.Bits < 1 || c.Barcode.Bits > 63 {
		return fmt.Errorf("barcode.bits must be between 1 and 63, got %d", c.Barcode.Bits)
	}

	if c.Alignment.SearchWindow < 0 {
		return errors.New("alignment.search_window must be >= 0")
	}
	if c.Alignment.MaxDriftPPM <= 0 {
		return errors.New("alignment.max_drift_ppm must be > 0")
	}
	if c.Alignment.MaxResidual < 0 {
		return errors.New("alignment.max_residual must be >= 0")
	}

	if c.PSTH.BinSize <= 0 || c.PSTH.Window < c.PSTH.BinSize {
		return errors.New("psth.window must be at least one psth.bin_size")
	}
	if c.PSTH.KernelWidth < c.PSTH.BinSize {
		return errors.New("psth.kernel_width must be at least one psth.bin_size")
	}

	if c.Triggered.Before < 0 || c.Triggered.After < 0 {
		return errors.New("triggered.before and triggered.after must be >= 0")
	}
	if c.Triggered.NumLicks < 0 {
		return errors.New("triggered.num_licks must be >= 0")
	}

	if c.Population.Concurrency < 1 {
		return errors.New("population.concurrency must be >= 1")
	}
	if c.Population.Percentile < 0 || c.Population.Percentile > 100 {
		return fmt.Errorf("population.percentile must be between 0 and 100, got %g", c.Population.Percentile)
	}
	if c.Population.Sigma <= 0 {
		return errors.New("population.sigma must be > 0")
	}

	if c.RFMap.Latency < 0 {
		return errors.New("rfmap.latency must be >= 0")
	}
	if c.RFMap.ResponseWindow <= 0 {
		return errors.New("rfmap.response_window must be > 0")
	}

	if (c.Inputs.Units == "") != (c.Inputs.Trials == "") {
		return errors.New("inputs.units and inputs.trials must be set together")
	}
	if c.Inputs.Mapping != "" && c.Inputs.Units == "" {
		return errors.New("inputs.mapping requires inputs.units")
	}

	if c.LIMS.Enabled {
		if err := c.LIMS.Database.validate("lims.database"); err != nil {
			return err
		}
	}

	return nil
}

func (p *ProbeConfig) validate(prefix string) error {
	if p.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if p.File == "" {
		return fmt.Errorf("%s.file is required", prefix)
	}
	if p.SampleRate <= 0 {
		return fmt.Errorf("%s.sample_rate must be > 0", prefix)
	}
	if err := validateChannel(prefix+".barcode_channel", p.BarcodeChannel); err != nil {
		return err
	}
	if p.LFP == nil {
		return nil
	}
	if p.LFP.File == "" {
		return fmt.Errorf("%s.lfp.file is required", prefix)
	}
	if p.LFP.SampleRate <= 0 {
		return fmt.Errorf("%s.lfp.sample_rate must be > 0", prefix)
	}
	if len(p.LFP.Channels) == 0 {
		return fmt.Errorf("%s.lfp.channels is required", prefix)
	}
	if r := p.LFP.Reference; r != nil {
		if len(r) != 2 || r[0] < 0 || r[0] >= r[1] || r[1] > len(p.LFP.Channels) {
			return fmt.Errorf("%s.lfp.reference must be [lo, hi) within %d channels", prefix, len(p.LFP.Channels))
		}
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateChannel(field string, ch int) error {
	if ch < 0 {
		return fmt.Errorf("%s must be >= 0, got %d", field, ch)
	}
	return nil
}
