// SPDX-License-Identifier: MIT
package filter

import (
	"errors"
	"strings"
	"testing"

	"soundcheck/internal/wave"
	"soundcheck/pkg/utils"
)

const testRate = 44100

func sine(t *testing.T, freq float64) wave.Waveform {
	t.Helper()
	return wave.Waveform{Samples: utils.SineWave(testRate, testRate, freq), SampleRate: testRate}
}

// gain runs a pure tone through the profile and reports output RMS
// relative to input RMS, which approximates |H(f)| * VolumeScale for a
// one-second clip.
func gain(t *testing.T, p Profile, freq float64) float64 {
	t.Helper()
	in := sine(t, freq)
	out, err := Run(p, in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return out.RMS() / in.RMS()
}

func TestDesignInvalid(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		rate    int
		substr  string
	}{
		{"Zero order", Profile{Kind: LowPass, CutoffHigh: 1000, Order: 0, VolumeScale: 1}, testRate, "order"},
		{"Zero volume scale", Profile{Kind: LowPass, CutoffHigh: 1000, Order: 2, VolumeScale: 0}, testRate, "volume scale"},
		{"Volume scale above one", Profile{Kind: LowPass, CutoffHigh: 1000, Order: 2, VolumeScale: 1.5}, testRate, "volume scale"},
		{"Low-pass missing cutoff", Profile{Kind: LowPass, Order: 2, VolumeScale: 1}, testRate, "cutoff"},
		{"Low-pass with extra cutoff", Profile{Kind: LowPass, CutoffLow: 100, CutoffHigh: 1000, Order: 2, VolumeScale: 1}, testRate, "only a high cutoff"},
		{"High-pass missing cutoff", Profile{Kind: HighPass, Order: 2, VolumeScale: 1}, testRate, "cutoff"},
		{"High-pass with extra cutoff", Profile{Kind: HighPass, CutoffLow: 100, CutoffHigh: 1000, Order: 2, VolumeScale: 1}, testRate, "only a low cutoff"},
		{"Band-pass missing low", Profile{Kind: BandPass, CutoffHigh: 2000, Order: 2, VolumeScale: 1}, testRate, "low cutoff"},
		{"Band-stop reversed cutoffs", Profile{Kind: BandStop, CutoffLow: 4000, CutoffHigh: 1000, Order: 2, VolumeScale: 1}, testRate, "below high cutoff"},
		{"Cutoff at Nyquist", Profile{Kind: LowPass, CutoffHigh: 22050, Order: 2, VolumeScale: 1}, testRate, "Nyquist"},
		{"Cutoff above Nyquist", Profile{Kind: HighPass, CutoffLow: 30000, Order: 2, VolumeScale: 1}, testRate, "Nyquist"},
		{"Negative cutoff", Profile{Kind: LowPass, CutoffHigh: -100, Order: 2, VolumeScale: 1}, testRate, "positive"},
		{"Bad sample rate", Profile{Kind: LowPass, CutoffHigh: 1000, Order: 2, VolumeScale: 1}, 0, "sample rate"},
		{"Unknown kind", Profile{Kind: Kind(99), CutoffHigh: 1000, Order: 2, VolumeScale: 1}, testRate, "unknown filter kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Design(tt.profile, tt.rate)
			if !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("error = %v, want ErrInvalidSpec", err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestLowPassAttenuation(t *testing.T) {
	p := Profile{Kind: LowPass, CutoffHigh: 4000, Order: 6, VolumeScale: 1}

	if g := gain(t, p, 1000); g < 0.95 {
		t.Errorf("passband gain at 1 kHz = %f, want > 0.95", g)
	}
	if g := gain(t, p, 8000); g > 0.05 {
		t.Errorf("stopband gain at 8 kHz = %f, want < 0.05", g)
	}
	if g := gain(t, p, 12000); g > 0.01 {
		t.Errorf("stopband gain at 12 kHz = %f, want < 0.01", g)
	}
}

func TestHighPassAttenuation(t *testing.T) {
	p := Profile{Kind: HighPass, CutoffLow: 500, Order: 2, VolumeScale: 1}

	if g := gain(t, p, 2000); g < 0.9 {
		t.Errorf("passband gain at 2 kHz = %f, want > 0.9", g)
	}
	if g := gain(t, p, 200); g > 0.25 {
		t.Errorf("stopband gain at 200 Hz = %f, want < 0.25", g)
	}
}

func TestBandPassAttenuation(t *testing.T) {
	p := Profile{Kind: BandPass, CutoffLow: 500, CutoffHigh: 2000, Order: 5, VolumeScale: 1}

	if g := gain(t, p, 1000); g < 0.95 {
		t.Errorf("passband gain at 1 kHz = %f, want > 0.95", g)
	}
	if g := gain(t, p, 200); g > 0.05 {
		t.Errorf("low stopband gain at 200 Hz = %f, want < 0.05", g)
	}
	if g := gain(t, p, 8000); g > 0.01 {
		t.Errorf("high stopband gain at 8 kHz = %f, want < 0.01", g)
	}
}

func TestBandStopAttenuation(t *testing.T) {
	p := Profile{Kind: BandStop, CutoffLow: 1000, CutoffHigh: 4000, Order: 3, VolumeScale: 1}

	if g := gain(t, p, 250); g < 0.9 {
		t.Errorf("low passband gain at 250 Hz = %f, want > 0.9", g)
	}
	if g := gain(t, p, 8000); g < 0.9 {
		t.Errorf("high passband gain at 8 kHz = %f, want > 0.9", g)
	}
	if g := gain(t, p, 2000); g > 0.35 {
		t.Errorf("stopband gain at 2 kHz = %f, want < 0.35", g)
	}

	// The notch must strictly reduce in-band energy.
	in := sine(t, 2000)
	out, err := Run(p, in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.RMS() >= in.RMS() {
		t.Errorf("band-stop did not reduce in-band energy: out %f >= in %f", out.RMS(), in.RMS())
	}
}

func TestVolumeScale(t *testing.T) {
	p := Profile{Kind: LowPass, CutoffHigh: 4000, Order: 4, VolumeScale: 0.5}

	g := gain(t, p, 1000)
	if g < 0.45 || g > 0.52 {
		t.Errorf("gain with volume scale 0.5 = %f, want about 0.5", g)
	}
}

func TestApplyNormalization(t *testing.T) {
	// Input beyond full scale: after filtering, the peak must come back
	// to exactly 1.0.
	loud := wave.Waveform{Samples: utils.SineWave(testRate/2, testRate, 1000), SampleRate: testRate}
	for i := range loud.Samples {
		loud.Samples[i] *= 3.0
	}

	p := Profile{Kind: LowPass, CutoffHigh: 4000, Order: 2, VolumeScale: 1}
	out, err := Run(p, loud)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if peak := out.Peak(); peak > 1.0+1e-12 {
		t.Errorf("normalized peak = %f, want <= 1.0", peak)
	}
	if peak := out.Peak(); peak < 0.999 {
		t.Errorf("normalized peak = %f, want == 1.0", peak)
	}
}

func TestApplySilence(t *testing.T) {
	silence := wave.Waveform{Samples: make([]float64, 4096), SampleRate: testRate}

	p := Profile{Kind: BandPass, CutoffLow: 500, CutoffHigh: 2000, Order: 5, VolumeScale: 0.3}
	out, err := Run(p, silence)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	for i, s := range out.Samples {
		if s != 0 {
			t.Fatalf("silence produced non-zero sample %f at %d", s, i)
		}
	}
}

func TestApplyPure(t *testing.T) {
	in := sine(t, 1000)
	ref := in.Clone()

	c, err := Design(Profile{Kind: HighPass, CutoffLow: 500, Order: 3, VolumeScale: 0.8}, testRate)
	if err != nil {
		t.Fatalf("Design error: %v", err)
	}

	first := Apply(c, in)
	second := Apply(c, in)

	for i := range in.Samples {
		if in.Samples[i] != ref.Samples[i] {
			t.Fatal("Apply mutated its input")
		}
	}
	for i := range first.Samples {
		if first.Samples[i] != second.Samples[i] {
			t.Fatal("repeated Apply with shared coefficients is not deterministic")
		}
	}
}

// The per-sample cascade loop must not allocate; Apply pays for its
// output buffer and state once, outside this loop.
func TestCascadeProcessAllocationFree(t *testing.T) {
	c, err := Design(Profile{Kind: LowPass, CutoffHigh: 3000, Order: 4, VolumeScale: 1}, testRate)
	if err != nil {
		t.Fatal(err)
	}
	sections := c.branches[0]
	st := newChainState(sections)
	buf := utils.SineWave(1024, testRate, 1000)

	allocs := testing.AllocsPerRun(100, func() {
		for _, x := range buf {
			_ = st.process(sections, x)
		}
	})
	if allocs > 0 {
		t.Errorf("cascade inner loop allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkApply(b *testing.B) {
	in := wave.Waveform{Samples: utils.SineWave(testRate, testRate, 1000), SampleRate: testRate}
	c, err := Design(Profile{Kind: BandPass, CutoffLow: 500, CutoffHigh: 2000, Order: 5, VolumeScale: 0.3}, testRate)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		Apply(c, in)
	}
}
