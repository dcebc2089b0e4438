package config

import "time"

// Config is the root configuration for one QC run.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Sync       SyncConfig       `yaml:"sync"`
	Probes     []ProbeConfig    `yaml:"probes"`
	Barcode    BarcodeConfig    `yaml:"barcode"`
	Alignment  AlignmentConfig  `yaml:"alignment"`
	PSTH       PSTHConfig       `yaml:"psth"`
	Triggered  TriggeredConfig  `yaml:"triggered"`
	Population PopulationConfig `yaml:"population"`
	RFMap      RFMapConfig      `yaml:"rfmap"`
	Inputs     InputsConfig     `yaml:"inputs"`
	LIMS       LIMSConfig       `yaml:"lims"`
}

// RunConfig identifies the recording session.
type RunConfig struct {
	Name      string        `yaml:"name"`
	MouseID   string        `yaml:"mouse_id"`   // LabTracks ID, used for LIMS lookups
	SessionID int64         `yaml:"session_id"` // LIMS ecephys session ID, 0 = skip
	Timeout   time.Duration `yaml:"timeout"`
}

// SyncConfig describes the master sync recording. Lines are EDF signal indices.
type SyncConfig struct {
	File           string  `yaml:"file"`
	SampleRate     float64 `yaml:"sample_rate"`
	Threshold      float64 `yaml:"threshold"`
	BarcodeChannel int     `yaml:"barcode_channel"`
	VsyncChannel   *int    `yaml:"vsync_channel"` // Stimulus frame flips, optional
	LickChannel    *int    `yaml:"lick_channel"`  // Lick sensor, optional
}

// ProbeConfig describes one probe's barcode line and optional LFP.
type ProbeConfig struct {
	Name           string     `yaml:"name"`
	File           string     `yaml:"file"`
	SampleRate     float64    `yaml:"sample_rate"` // Nominal rate on the probe clock
	Threshold      float64    `yaml:"threshold"`
	BarcodeChannel int        `yaml:"barcode_channel"`
	LFP            *LFPConfig `yaml:"lfp"`
}

// LFPConfig locates a probe's LFP band recording.
type LFPConfig struct {
	File       string  `yaml:"file"`
	SampleRate float64 `yaml:"sample_rate"`
	Channels   []int   `yaml:"channels"`
	Reference  []int   `yaml:"reference"` // Half-open channel range [lo, hi) within Channels
}

// BarcodeConfig holds the sync barcode protocol.
type BarcodeConfig struct {
	BitDuration  float64 `yaml:"bit_duration"`
	GapThreshold float64 `yaml:"gap_threshold"`
	Bits         int     `yaml:"bits"`
}

// AlignmentConfig holds clock alignment settings.
type AlignmentConfig struct {
	SearchWindow float64 `yaml:"search_window"` // Seconds, 0 = match by value only
	MaxDriftPPM  float64 `yaml:"max_drift_ppm"`
	MaxResidual  float64 `yaml:"max_residual"` // RMS seconds, 0 = unchecked
}

// PSTHConfig holds spike density settings for event-aligned PSTHs.
type PSTHConfig struct {
	Window      float64 `yaml:"window"`
	BinSize     float64 `yaml:"bin_size"`
	KernelWidth float64 `yaml:"kernel_width"`
}

// TriggeredConfig holds lick-triggered LFP settings.
type TriggeredConfig struct {
	Before        float64 `yaml:"before"`
	After         float64 `yaml:"after"`
	Gain          float64 `yaml:"gain"` // Microvolts per bit
	NumLicks      int     `yaml:"num_licks"`
	MinInterLick  float64 `yaml:"min_inter_lick"`
	MaxIntervalCV float64 `yaml:"max_interval_cv"`
}

// PopulationConfig holds population change-response settings.
type PopulationConfig struct {
	Concurrency int     `yaml:"concurrency"`
	MinSNR      float64 `yaml:"min_snr"`
	Percentile  float64 `yaml:"percentile"` // Peak-channel percentile cut for cortical units
	MinSpikes   int     `yaml:"min_spikes"`
	Pre         float64 `yaml:"pre"`
	Post        float64 `yaml:"post"`
	Sigma       float64 `yaml:"sigma"`
}

// RFMapConfig holds receptive-field mapping settings.
type RFMapConfig struct {
	Latency        float64 `yaml:"latency"`
	ResponseWindow float64 `yaml:"response_window"`
}

// InputsConfig locates upstream unit, trial and mapping tables.
type InputsConfig struct {
	Units   string `yaml:"units"`
	Trials  string `yaml:"trials"`
	Mapping string `yaml:"mapping"` // Receptive-field flashes, optional
}

// LIMSConfig holds the read-only LIMS database connection.
type LIMSConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Database DBConfig `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
