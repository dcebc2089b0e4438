package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTimeout       = 30 * time.Minute
	DefaultThreshold     = 0.5
	DefaultBitDuration   = 0.03
	DefaultGapThreshold  = 1.0
	DefaultBits          = 32
	DefaultMaxDriftPPM   = 500
	DefaultPSTHWindow    = 1.0
	DefaultPSTHBinSize   = 0.001
	DefaultKernelWidth   = 0.05
	DefaultBefore        = 0.5
	DefaultAfter         = 1.5
	DefaultGain          = 0.195
	DefaultNumLicks      = 20
	DefaultMinInterLick  = 0.5
	DefaultMaxIntervalCV = 0.05
	DefaultConcurrency   = 8
	DefaultMinSNR        = 1
	DefaultPercentile    = 66
	DefaultMinSpikes     = 3600
	DefaultPre           = 0.05
	DefaultPost          = 0.55
	DefaultSigma         = 0.005
	DefaultRFLatency     = 0.025
	DefaultRFWindow      = 0.2
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 4
)

func (c *Config) applyDefaults() {
	if c.Run.Timeout == 0 {
		c.Run.Timeout = DefaultTimeout
	}

	// Sync line defaults
	if c.Sync.Threshold == 0 {
		c.Sync.Threshold = DefaultThreshold
	}
	for i := range c.Probes {
		if c.Probes[i].Threshold == 0 {
			c.Probes[i].Threshold = DefaultThreshold
		}
	}

	// Barcode defaults
	if c.Barcode.BitDuration == 0 {
		c.Barcode.BitDuration = DefaultBitDuration
	}
	if c.Barcode.GapThreshold == 0 {
		c.Barcode.GapThreshold = DefaultGapThreshold
	}
	if c.Barcode.Bits == 0 {
		c.Barcode.Bits = DefaultBits
	}

	if c.Alignment.MaxDriftPPM == 0 {
		c.Alignment.MaxDriftPPM = DefaultMaxDriftPPM
	}

	// PSTH defaults
	if c.PSTH.Window == 0 {
		c.PSTH.Window = DefaultPSTHWindow
	}
	if c.PSTH.BinSize == 0 {
		c.PSTH.BinSize = DefaultPSTHBinSize
	}
	if c.PSTH.KernelWidth == 0 {
		c.PSTH.KernelWidth = DefaultKernelWidth
	}

	// Triggered defaults
	if c.Triggered.Before == 0 {
		c.Triggered.Before = DefaultBefore
	}
	if c.Triggered.After == 0 {
		c.Triggered.After = DefaultAfter
	}
	if c.Triggered.Gain == 0 {
		c.Triggered.Gain = DefaultGain
	}
	if c.Triggered.NumLicks == 0 {
		c.Triggered.NumLicks = DefaultNumLicks
	}
	if c.Triggered.MinInterLick == 0 {
		c.Triggered.MinInterLick = DefaultMinInterLick
	}
	if c.Triggered.MaxIntervalCV == 0 {
		c.Triggered.MaxIntervalCV = DefaultMaxIntervalCV
	}

	// Population defaults
	if c.Population.Concurrency == 0 {
		c.Population.Concurrency = DefaultConcurrency
	}
	if c.Population.MinSNR == 0 {
		c.Population.MinSNR = DefaultMinSNR
	}
	if c.Population.Percentile == 0 {
		c.Population.Percentile = DefaultPercentile
	}
	if c.Population.MinSpikes == 0 {
		c.Population.MinSpikes = DefaultMinSpikes
	}
	if c.Population.Pre == 0 {
		c.Population.Pre = DefaultPre
	}
	if c.Population.Post == 0 {
		c.Population.Post = DefaultPost
	}
	if c.Population.Sigma == 0 {
		c.Population.Sigma = DefaultSigma
	}

	// RF map defaults
	if c.RFMap.Latency == 0 {
		c.RFMap.Latency = DefaultRFLatency
	}
	if c.RFMap.ResponseWindow == 0 {
		c.RFMap.ResponseWindow = DefaultRFWindow
	}

	applyDBDefaults(&c.LIMS.Database)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
}
