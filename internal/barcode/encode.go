package barcode

import (
	"github.com/rickgao/ephys-qc/internal/model"
)

// Encoder renders barcode events into a synthetic transition stream.
type Encoder struct {
	Protocol  Protocol
	ZeroWidth float64 // Pulse width for a 0 bit (s)
	OneWidth  float64 // Pulse width for a 1 bit (s)
	Period    float64 // Rising-to-rising spacing inside a barcode (s)
}

// NewEncoder returns an encoder using the nominal pulse widths of p.
func NewEncoder(p Protocol) Encoder {
	return Encoder{
		Protocol:  p,
		ZeroWidth: p.BitDuration / 2,
		OneWidth:  1.5 * p.BitDuration,
		Period:    2 * p.BitDuration,
	}
}

// Encode renders events with the nominal pulse widths of p.
func Encode(events []Event, p Protocol) (rising, falling []float64, err error) {
	return NewEncoder(p).Encode(events)
}

// Encode renders events into rising and falling edge times.
func (e Encoder) Encode(events []Event) (rising, falling []float64, err error) {
	if err := e.Protocol.Validate(); err != nil {
		return nil, nil, err
	}
	if e.ZeroWidth <= 0 || e.OneWidth <= 0 {
		return nil, nil, model.Invalid("pulse_width", "must be > 0")
	}
	if e.Period <= e.ZeroWidth || e.Period <= e.OneWidth {
		return nil, nil, model.Invalid("period", "must exceed pulse widths, got %g", e.Period)
	}

	if e.Period-min(e.ZeroWidth, e.OneWidth) > e.Protocol.GapThreshold {
		return nil, nil, model.Invalid("period", "intra-barcode gap exceeds gap_threshold %g", e.Protocol.GapThreshold)
	}

	bits := e.Protocol.Bits
	duration := float64(bits-1)*e.Period + max(e.ZeroWidth, e.OneWidth)
	rising = make([]float64, 0, len(events)*bits)
	falling = make([]float64, 0, len(events)*bits)

	for i, ev := range events {
		if ev.Value >= 1<<uint(bits) {
			return nil, nil, model.Invalid("value", "%d does not fit in %d bits", ev.Value, bits)
		}
		if i > 0 && ev.Time-(events[i-1].Time+duration) <= e.Protocol.GapThreshold {
			return nil, nil, model.Invalid("time", "barcode at %g starts within the gap threshold of the previous one", ev.Time)
		}
		for j := 0; j < bits; j++ {
			r := ev.Time + float64(j)*e.Period
			w := e.ZeroWidth
			if ev.Value&(1<<uint(j)) != 0 {
				w = e.OneWidth
			}
			rising = append(rising, r)
			falling = append(falling, r+w)
		}
	}

	return rising, falling, nil
}
