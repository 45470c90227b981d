// SPDX-License-Identifier: MIT
package wave

import "math"

// Waveform is a mono audio clip: float64 samples (nominally in [-1, 1])
// plus the rate they were captured or synthesized at. Transforms return
// fresh sample slices; a Waveform handed across a package boundary is
// never mutated in place.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Peak returns the maximum absolute sample value.
func (w Waveform) Peak() float64 {
	peak := 0.0
	for _, s := range w.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root-mean-square amplitude of the clip.
func (w Waveform) RMS() float64 {
	if len(w.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range w.Samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(w.Samples)))
}

// Clone returns a deep copy.
func (w Waveform) Clone() Waveform {
	out := make([]float64, len(w.Samples))
	copy(out, w.Samples)
	return Waveform{Samples: out, SampleRate: w.SampleRate}
}

// Truncate returns a copy limited to the first maxSeconds of audio.
// Clips already within the limit are copied unchanged.
func (w Waveform) Truncate(maxSeconds float64) Waveform {
	limit := int(maxSeconds * float64(w.SampleRate))
	if limit < 0 {
		limit = 0
	}
	if limit > len(w.Samples) {
		limit = len(w.Samples)
	}
	out := make([]float64, limit)
	copy(out, w.Samples[:limit])
	return Waveform{Samples: out, SampleRate: w.SampleRate}
}
