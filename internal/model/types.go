package model

// -----------------------------------------------------------------------------
// Behavior
// -----------------------------------------------------------------------------

// Trial outcome labels as reported by the behavior log.
const (
	OutcomeHit        = "HIT"
	OutcomeMiss       = "MISS"
	OutcomeFalseAlarm = "FA"
	OutcomeCorrectRej = "CR"
)

// Trial is one behavioral trial on the master clock.
type Trial struct {
	Index   int     // Position in the trial table (>= 0)
	Start   float64 // Trial start (s)
	End     float64 // Trial end (s), exclusive
	Outcome string  // Response outcome label, may be empty
}

// -----------------------------------------------------------------------------
// Electrophysiology
// -----------------------------------------------------------------------------

// Unit quality labels from spike sorting.
const (
	QualityGood  = "good"
	QualityNoise = "noise"
)

// Unit is one sorted unit and its spike train.
type Unit struct {
	ID          string    // Unit identifier, unique within a probe
	Probe       string    // Probe name (e.g. "A")
	PeakChannel int       // Channel with the largest waveform amplitude
	SNR         float64   // Waveform signal-to-noise ratio
	Quality     string    // "good" or "noise"
	Times       []float64 // Spike times (s), ascending, master clock
}

// Signal is a continuously sampled, possibly multi-channel recording.
type Signal struct {
	Samples [][]float64 // Samples[i][ch]
	Times   []float64   // Time of each sample (s)
}

// Channels returns the number of channels, 0 for an empty signal.
func (s Signal) Channels() int {
	if len(s.Samples) == 0 {
		return 0
	}
	return len(s.Samples[0])
}

// Len returns the number of samples.
func (s Signal) Len() int {
	return len(s.Times)
}
