package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/rickgao/ephys-qc/internal/barcode"
	"github.com/rickgao/ephys-qc/internal/model"
	"github.com/rickgao/ephys-qc/internal/rfmap"
	"github.com/rickgao/ephys-qc/internal/triggered"
)

func TestNewRun(t *testing.T) {
	a := NewRun("session", "1.0.0")
	b := NewRun("session", "1.0.0")

	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", a.ID, err)
	}
	if a.ID == b.ID {
		t.Errorf("NewRun() ids collide: %q", a.ID)
	}
	if a.Started.IsZero() {
		t.Error("Started is zero")
	}
	if a.Sync == nil || a.Barcodes == nil {
		t.Error("result maps not initialised")
	}
}

func TestRunWriteJSON(t *testing.T) {
	r := NewRun("session", "dev")
	r.Sync["A"] = Registration{Shift: 1.5, SampleRate: 29999.1, Matched: 12}
	r.Fail("vsync", errors.New("no vsync line"))
	r.Finish()

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["id"] != r.ID {
		t.Errorf("id = %v, want %q", got["id"], r.ID)
	}
	sync := got["sync"].(map[string]any)["A"].(map[string]any)
	if sync["shift"] != 1.5 {
		t.Errorf("sync.A.shift = %v, want 1.5", sync["shift"])
	}
	if _, ok := sync["Map"]; ok {
		t.Error("sync.A exposes the internal clock map")
	}
	errs := got["errors"].([]any)
	if len(errs) != 1 || errs[0].(map[string]any)["stage"] != "vsync" {
		t.Errorf("errors = %v, want one vsync error", errs)
	}
	if _, ok := got["vsync"]; ok {
		t.Error("vsync present, want omitted")
	}
}

func TestBarcodes(t *testing.T) {
	events := []barcode.Event{{Time: 0, Value: 1}, {Time: 30, Value: 2}, {Time: 90, Value: 3}}
	skipped := []*model.DecodeError{{Reason: "bit count"}}

	got := Barcodes(events, skipped)
	want := BarcodeStats{Decoded: 3, Skipped: 1, MeanInterval: 45, MaxInterval: 60}
	if got != want {
		t.Errorf("Barcodes() = %+v, want %+v", got, want)
	}

	if got := Barcodes(events[:1], nil); got != (BarcodeStats{Decoded: 1}) {
		t.Errorf("Barcodes(one) = %+v, want only Decoded=1", got)
	}
}

func TestTriggered(t *testing.T) {
	res := triggered.Result{
		Average: [][]float64{{1, -2}, {4, 0}, {-1, 3}},
		Used:    []float64{10, 20},
	}

	got := Triggered(res)
	if got.Events != 2 || got.Samples != 3 {
		t.Errorf("Triggered() = %+v, want 2 events and 3 samples", got)
	}
	if len(got.PeakToPeak) != 2 || got.PeakToPeak[0] != 5 || got.PeakToPeak[1] != 5 {
		t.Errorf("PeakToPeak = %v, want [5 5]", got.PeakToPeak)
	}
}

func TestPeak(t *testing.T) {
	m := rfmap.Map{
		Xs:   []float64{-10, 10},
		Ys:   []float64{0},
		Oris: []float64{0, 90},
		Response: [][][]float64{
			{{1, 2}, {7, 0}},
		},
	}

	got := Peak("u1", m)
	want := RFPeak{Unit: "u1", X: 10, Y: 0, Ori: 0, Spikes: 7, Total: 10}
	if got != want {
		t.Errorf("Peak() = %+v, want %+v", got, want)
	}
}
