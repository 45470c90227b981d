// SPDX-License-Identifier: MIT
package synth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"soundcheck/internal/wave"
)

// ErrInvalidParameter reports a tone request outside the valid ranges.
var ErrInvalidParameter = errors.New("invalid tone parameter")

const (
	// DefaultSampleRate is used when a Tone leaves SampleRate unset.
	DefaultSampleRate = 44100

	// DefaultFade is the ramp applied at both ends of a tone to avoid
	// audible clicks when playback starts and stops.
	DefaultFade = 20 * time.Millisecond
)

// Tone describes a single pure-tone request. Zero SampleRate and Fade
// fall back to the package defaults.
type Tone struct {
	Frequency  float64       // Hz
	Duration   float64       // seconds
	Amplitude  float64       // linear, 0..1
	SampleRate int           // Hz
	Fade       time.Duration // fade-in/out length
}

// Synthesize renders the tone as amplitude * sin(2*pi*f*t) with a
// raised-cosine fade at both ends. The output is deterministic for
// identical inputs.
func Synthesize(t Tone) (wave.Waveform, error) {
	if t.SampleRate == 0 {
		t.SampleRate = DefaultSampleRate
	}
	if t.Fade == 0 {
		t.Fade = DefaultFade
	}
	if err := validate(t); err != nil {
		return wave.Waveform{}, err
	}

	n := int(math.Round(t.Duration * float64(t.SampleRate)))
	samples := make([]float64, n)
	step := 2 * math.Pi * t.Frequency / float64(t.SampleRate)
	for i := range samples {
		samples[i] = t.Amplitude * math.Sin(step*float64(i))
	}
	applyFade(samples, t.Fade, t.SampleRate)

	return wave.Waveform{Samples: samples, SampleRate: t.SampleRate}, nil
}

func validate(t Tone) error {
	if t.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParameter, t.SampleRate)
	}
	nyquist := float64(t.SampleRate) / 2
	if t.Frequency <= 0 {
		return fmt.Errorf("%w: frequency must be positive, got %g Hz", ErrInvalidParameter, t.Frequency)
	}
	if t.Frequency > nyquist {
		return fmt.Errorf("%w: frequency %g Hz exceeds Nyquist %g Hz", ErrInvalidParameter, t.Frequency, nyquist)
	}
	if t.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g s", ErrInvalidParameter, t.Duration)
	}
	if t.Amplitude < 0 || t.Amplitude > 1 {
		return fmt.Errorf("%w: amplitude must be in [0, 1], got %g", ErrInvalidParameter, t.Amplitude)
	}
	if t.Fade < 0 {
		return fmt.Errorf("%w: fade must not be negative, got %s", ErrInvalidParameter, t.Fade)
	}
	return nil
}

// applyFade ramps both ends with a raised-cosine so the clip starts and
// ends at zero. The ramp is clamped to half the clip for short tones.
func applyFade(samples []float64, fade time.Duration, sampleRate int) {
	n := int(fade.Seconds() * float64(sampleRate))
	if n > len(samples)/2 {
		n = len(samples) / 2
	}
	if n == 0 {
		return
	}
	last := len(samples) - 1
	for i := 0; i < n; i++ {
		g := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(n)))
		samples[i] *= g
		samples[last-i] *= g
	}
}
