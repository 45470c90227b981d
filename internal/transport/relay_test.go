// SPDX-License-Identifier: MIT

package transport

import (
	"math"
	"testing"

	"soundcheck/internal/analysis"
	"soundcheck/internal/audiometry"
	"soundcheck/pkg/utils"
)

func TestBandRelayNoFrameYet(t *testing.T) {
	relay := newBandRelay(&utils.MockTransport{})

	if got := relay.LatestBands(); got != nil {
		t.Fatalf("LatestBands() before first frame = %v, want nil", got)
	}
}

func TestBandRelayCapturesAndForwards(t *testing.T) {
	next := &utils.MockTransport{}
	relay := newBandRelay(next)

	frame := analysis.SpectrumFrame{
		Type:  "spectrum",
		Seq:   1,
		TimeS: 0.25,
		Bands: map[string]float64{
			"500": 0.1, "1000": 0.2, "2000": 0.3,
			"3000": 0.4, "4000": 0.5, "8000": 0.6,
		},
	}
	if err := relay.Send(frame); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	got := relay.LatestBands()
	if len(got) != len(want) {
		t.Fatalf("LatestBands() returned %d levels, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("LatestBands()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if next.Count() != 1 {
		t.Fatalf("downstream received %d payloads, want 1", next.Count())
	}
	fwd, ok := next.Last().(analysis.SpectrumFrame)
	if !ok {
		t.Fatalf("downstream payload is %T, want analysis.SpectrumFrame", next.Last())
	}
	if fwd.Seq != frame.Seq {
		t.Errorf("forwarded frame seq = %d, want %d", fwd.Seq, frame.Seq)
	}
}

func TestBandRelayPassesThroughOtherPayloads(t *testing.T) {
	next := &utils.MockTransport{}
	relay := newBandRelay(next)

	if err := relay.Send("ping"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if next.Count() != 1 {
		t.Fatalf("downstream received %d payloads, want 1", next.Count())
	}
	if got := relay.LatestBands(); got != nil {
		t.Errorf("LatestBands() after non-frame payload = %v, want nil", got)
	}
}

func TestBandRelayFrequencies(t *testing.T) {
	relay := newBandRelay(&utils.MockTransport{})

	want := audiometry.TestFrequencies()
	got := relay.BandFrequencies()
	if len(got) != len(want) {
		t.Fatalf("BandFrequencies() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BandFrequencies()[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	// Mutating the copy must not corrupt the relay.
	got[0] = 1
	if relay.BandFrequencies()[0] != want[0] {
		t.Error("BandFrequencies() shares its backing array with callers")
	}
}

func TestBandRelayMissingBandDefaultsToZero(t *testing.T) {
	relay := newBandRelay(&utils.MockTransport{})

	frame := analysis.SpectrumFrame{
		Type:  "spectrum",
		Seq:   7,
		Bands: map[string]float64{"1000": 0.8},
	}
	if err := relay.Send(frame); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	got := relay.LatestBands()
	if len(got) != len(audiometry.TestFrequencies()) {
		t.Fatalf("LatestBands() returned %d levels, want %d", len(got), len(audiometry.TestFrequencies()))
	}
	if got[0] != 0 || got[1] != 0.8 {
		t.Errorf("LatestBands() = %v, want zero everywhere except index 1 = 0.8", got)
	}
}

func TestBandRelayCloseDelegates(t *testing.T) {
	next := &utils.MockTransport{}
	relay := newBandRelay(next)

	if err := relay.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !next.Closed {
		t.Error("Close() did not reach the downstream transport")
	}
}
