package model

import "fmt"

// DecodeError reports a malformed or count-mismatched barcode transition stream.
type DecodeError struct {
	Reason  string
	Time    float64 // Time of the offending edge or barcode start
	Rising  int     // Rising edge count (set on count mismatch)
	Falling int     // Falling edge count (set on count mismatch)
	Bits    int     // Bits found in the offending barcode
	Want    int     // Bits expected by the protocol
}

func (e *DecodeError) Error() string {
	switch {
	case e.Rising != e.Falling:
		return fmt.Sprintf("barcode decode: %s: %d rising vs %d falling edges", e.Reason, e.Rising, e.Falling)
	case e.Want > 0:
		return fmt.Sprintf("barcode decode: %s at t=%.6f: got %d bits, want %d", e.Reason, e.Time, e.Bits, e.Want)
	default:
		return fmt.Sprintf("barcode decode: %s at t=%.6f", e.Reason, e.Time)
	}
}

// AlignmentError reports insufficient or inconsistent barcode matches between two clocks.
type AlignmentError struct {
	Reason      string
	Matched     int     // Matched barcode pairs with distinct values
	Scale       float64 // Fitted scale, when a fit was attempted
	MaxDriftPPM float64 // Sanity bound in force
	Residual    float64 // RMS fit residual (s), when it exceeded MaxResidual
	MaxResidual float64
}

func (e *AlignmentError) Error() string {
	if e.MaxResidual != 0 {
		return fmt.Sprintf("clock alignment: %s: rms %.6fs (limit %.6fs), %d matches",
			e.Reason, e.Residual, e.MaxResidual, e.Matched)
	}
	if e.Scale != 0 {
		return fmt.Sprintf("clock alignment: %s: scale=%.9f (%.1f ppm, limit %.1f ppm), %d matches",
			e.Reason, e.Scale, (e.Scale-1)*1e6, e.MaxDriftPPM, e.Matched)
	}
	return fmt.Sprintf("clock alignment: %s: %d matches", e.Reason, e.Matched)
}

// InsufficientDataError reports empty input where a statistic is undefined.
type InsufficientDataError struct {
	What string // Name of the empty input (e.g. "event times")
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s: have %d, need at least %d", e.What, e.Have, e.Need)
}

// IrregularSamplingError reports sample times too non-uniform for fixed-count windowing.
type IrregularSamplingError struct {
	CV        float64 // Coefficient of variation of sample intervals
	Threshold float64
	Median    float64 // Median sample interval (s)
}

func (e *IrregularSamplingError) Error() string {
	return fmt.Sprintf("irregular sampling: interval cv %.4g exceeds %.4g (median interval %.6gs)", e.CV, e.Threshold, e.Median)
}

// InvalidInputError reports a precondition violation.
type InvalidInputError struct {
	Param  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Param, e.Reason)
}

// Invalid is shorthand for building an InvalidInputError.
func Invalid(param, format string, args ...any) error {
	return &InvalidInputError{Param: param, Reason: fmt.Sprintf(format, args...)}
}
