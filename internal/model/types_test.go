package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestSignal(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var s Signal
		if s.Channels() != 0 {
			t.Errorf("Channels() = %d, want 0", s.Channels())
		}
		if s.Len() != 0 {
			t.Errorf("Len() = %d, want 0", s.Len())
		}
	})

	t.Run("two channels", func(t *testing.T) {
		s := Signal{
			Samples: [][]float64{{1, 2}, {3, 4}, {5, 6}},
			Times:   []float64{0, 0.1, 0.2},
		}
		if s.Channels() != 2 {
			t.Errorf("Channels() = %d, want 2", s.Channels())
		}
		if s.Len() != 3 {
			t.Errorf("Len() = %d, want 3", s.Len())
		}
	})
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "decode count mismatch",
			err:  &DecodeError{Reason: "edge count mismatch", Rising: 4, Falling: 3},
			want: "barcode decode: edge count mismatch: 4 rising vs 3 falling edges",
		},
		{
			name: "decode bit count",
			err:  &DecodeError{Reason: "wrong bit count", Time: 1.5, Bits: 30, Want: 32},
			want: "barcode decode: wrong bit count at t=1.500000: got 30 bits, want 32",
		},
		{
			name: "alignment matches",
			err:  &AlignmentError{Reason: "too few matched barcodes", Matched: 1},
			want: "clock alignment: too few matched barcodes: 1 matches",
		},
		{
			name: "insufficient data",
			err:  &InsufficientDataError{What: "event times", Have: 0, Need: 1},
			want: "insufficient data: event times: have 0, need at least 1",
		},
		{
			name: "invalid input",
			err:  Invalid("bin_size", "must be > 0, got %g", -0.5),
			want: "invalid input: bin_size: must be > 0, got -0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("probe A: %w", &AlignmentError{Reason: "scale out of range", Matched: 12, Scale: 1.01})

	var alignErr *AlignmentError
	if !errors.As(wrapped, &alignErr) {
		t.Fatalf("errors.As failed for %T", wrapped)
	}
	if alignErr.Matched != 12 {
		t.Errorf("Matched = %d, want 12", alignErr.Matched)
	}
}
