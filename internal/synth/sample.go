// SPDX-License-Identifier: MIT
package synth

import (
	"math"
	"math/rand"

	"soundcheck/internal/wave"
)

// sampleComponents are the partials of the built-in demo clip: a handful
// of tones spanning the speech and high-frequency range so every
// hearing-loss profile audibly changes the result.
var sampleComponents = []struct {
	freq  float64 // Hz
	level float64 // linear amplitude before normalization
	decay float64 // exponential decay rate, 1/s
}{
	{440, 1.00, 1.2},
	{880, 0.80, 1.6},
	{1320, 0.65, 2.0},
	{2640, 0.50, 2.4},
	{5280, 0.40, 2.8},
	{8000, 0.30, 3.2},
}

const sampleNoiseLevel = 0.005

// DefaultClipSeconds is the demo clip length used when the caller has
// no opinion, long enough for every partial to decay audibly.
const DefaultClipSeconds = 3.0

// SampleClip renders the deterministic demo clip used by the sample
// endpoint, the play command, and the simulator tests: decaying partials
// plus a fixed-seed noise floor, peak-normalized to 0.9.
func SampleClip(durationS float64, sampleRate int) wave.Waveform {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if durationS <= 0 {
		durationS = DefaultClipSeconds
	}

	n := int(math.Round(durationS * float64(sampleRate)))
	samples := make([]float64, n)
	rng := rand.New(rand.NewSource(1))

	for i := range samples {
		t := float64(i) / float64(sampleRate)
		var s float64
		for _, c := range sampleComponents {
			s += c.level * math.Exp(-c.decay*t) * math.Sin(2*math.Pi*c.freq*t)
		}
		samples[i] = s + sampleNoiseLevel*(2*rng.Float64()-1)
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		scale := 0.9 / peak
		for i := range samples {
			samples[i] *= scale
		}
	}
	applyFade(samples, DefaultFade, sampleRate)

	return wave.Waveform{Samples: samples, SampleRate: sampleRate}
}
