package barcode

import (
	"github.com/rickgao/ephys-qc/internal/model"
)

// edgeJitter absorbs float rounding when comparing pulse widths (s).
const edgeJitter = 1e-9

// Protocol describes the barcode timing of the sync hardware.
type Protocol struct {
	BitDuration  float64 // Width threshold separating 0 and 1 pulses (s)
	GapThreshold float64 // Low time that starts a new barcode (s)
	Bits         int     // Pulses per barcode
}

// DefaultProtocol returns the protocol used by the rig sync device.
func DefaultProtocol() Protocol {
	return Protocol{
		BitDuration:  0.03,
		GapThreshold: 1.0,
		Bits:         32,
	}
}

// Validate checks that the protocol is usable.
func (p Protocol) Validate() error {
	if p.BitDuration <= 0 {
		return model.Invalid("bit_duration", "must be > 0, got %g", p.BitDuration)
	}
	if p.Bits < 1 || p.Bits > 63 {
		return model.Invalid("bits", "must be between 1 and 63, got %d", p.Bits)
	}
	if p.GapThreshold <= 2*p.BitDuration {
		return model.Invalid("gap_threshold", "must exceed the longest pulse (%g), got %g", 2*p.BitDuration, p.GapThreshold)
	}
	return nil
}

// Event is one decoded barcode.
type Event struct {
	Time  float64 // Rising edge of the first pulse (s, local clock)
	Value uint64
}

// Extract decodes every barcode in a transition stream. It fails on the
// first malformed barcode; use ExtractAll to skip malformed barcodes.
func Extract(rising, falling []float64, p Protocol) ([]Event, error) {
	events, skipped, err := ExtractAll(rising, falling, p)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		return nil, skipped[0]
	}
	return events, nil
}

// ExtractAll decodes every well-formed barcode and returns the malformed
// ones separately. The error is non-nil only when the stream itself is
// unusable (bad protocol, edge count mismatch, edges out of order).
func ExtractAll(rising, falling []float64, p Protocol) ([]Event, []*model.DecodeError, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	if len(rising) != len(falling) {
		return nil, nil, &model.DecodeError{
			Reason:  "edge count mismatch",
			Rising:  len(rising),
			Falling: len(falling),
		}
	}
	for i := range rising {
		if falling[i] <= rising[i] {
			return nil, nil, &model.DecodeError{Reason: "falling edge precedes rising edge", Time: rising[i]}
		}
		if i+1 < len(rising) && rising[i+1] <= falling[i] {
			return nil, nil, &model.DecodeError{Reason: "edges do not interleave", Time: rising[i+1]}
		}
	}

	var (
		events  []Event
		skipped []*model.DecodeError
	)
	start := 0
	for i := 1; i <= len(rising); i++ {
		if i < len(rising) && rising[i]-falling[i-1] <= p.GapThreshold {
			continue
		}
		ev, err := decodeGroup(rising[start:i], falling[start:i], p)
		if err != nil {
			skipped = append(skipped, err)
		} else {
			events = append(events, ev)
		}
		start = i
	}

	return events, skipped, nil
}

// decodeGroup decodes the pulses of a single barcode.
func decodeGroup(rising, falling []float64, p Protocol) (Event, *model.DecodeError) {
	if len(rising) != p.Bits {
		return Event{}, &model.DecodeError{
			Reason: "wrong bit count",
			Time:   rising[0],
			Bits:   len(rising),
			Want:   p.Bits,
		}
	}

	var value uint64
	for j := range rising {
		w := falling[j] - rising[j]
		if w > 2*p.BitDuration+edgeJitter {
			return Event{}, &model.DecodeError{Reason: "pulse too long", Time: rising[j]}
		}
		if w >= p.BitDuration-edgeJitter {
			value |= 1 << uint(j)
		}
	}

	return Event{Time: rising[0], Value: value}, nil
}

// Intervals returns the time between consecutive barcodes.
func Intervals(events []Event) []float64 {
	if len(events) < 2 {
		return nil
	}
	out := make([]float64, len(events)-1)
	for i := 1; i < len(events); i++ {
		out[i-1] = events[i].Time - events[i-1].Time
	}
	return out
}
