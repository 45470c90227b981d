// SPDX-License-Identifier: MIT

// Package filter designs and applies the Butterworth IIR filters behind
// the hearing-loss simulation profiles: band-stop, low-pass, high-pass
// and band-pass kinds with an associated volume scale and clipping-safe
// normalization.
package filter

import (
	"errors"
	"fmt"
	"math"

	"soundcheck/internal/wave"
)

// ErrInvalidSpec reports a filter profile whose cutoffs, order or volume
// scale cannot be designed at the given sample rate.
var ErrInvalidSpec = errors.New("invalid filter specification")

// Kind selects the frequency-selective behavior of a profile.
type Kind int

const (
	BandStop Kind = iota
	LowPass
	HighPass
	BandPass
)

func (k Kind) String() string {
	switch k {
	case BandStop:
		return "band-stop"
	case LowPass:
		return "low-pass"
	case HighPass:
		return "high-pass"
	case BandPass:
		return "band-pass"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Profile is a static filter description. Low-pass uses CutoffHigh only,
// high-pass uses CutoffLow only, band kinds use both (low < high).
type Profile struct {
	Kind        Kind
	CutoffLow   float64 // Hz
	CutoffHigh  float64 // Hz
	Order       int
	VolumeScale float64 // linear gain applied after filtering, (0, 1]
}

// Coefficients is a designed filter ready for Apply. Band-stop designs
// carry two parallel branches whose outputs are summed; every other kind
// is a single cascade.
type Coefficients struct {
	branches [][]section
	scale    float64
}

// Design validates the profile against the sample rate and computes the
// biquad cascades.
//
// Band-pass is realized as high-pass(low) -> low-pass(high) in series;
// band-stop as low-pass(low) + high-pass(high) in parallel. Each half
// uses the profile's full order.
func Design(p Profile, sampleRate int) (Coefficients, error) {
	if sampleRate <= 0 {
		return Coefficients{}, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidSpec, sampleRate)
	}
	if p.Order < 1 {
		return Coefficients{}, fmt.Errorf("%w: order must be at least 1, got %d", ErrInvalidSpec, p.Order)
	}
	if p.VolumeScale <= 0 || p.VolumeScale > 1 {
		return Coefficients{}, fmt.Errorf("%w: volume scale must be in (0, 1], got %g", ErrInvalidSpec, p.VolumeScale)
	}

	fs := float64(sampleRate)
	nyquist := fs / 2

	checkCutoff := func(name string, c float64) error {
		if c <= 0 {
			return fmt.Errorf("%w: %s cutoff must be positive, got %g Hz", ErrInvalidSpec, name, c)
		}
		if c >= nyquist {
			return fmt.Errorf("%w: %s cutoff %g Hz must be below Nyquist %g Hz", ErrInvalidSpec, name, c, nyquist)
		}
		return nil
	}

	var branches [][]section
	switch p.Kind {
	case LowPass:
		if p.CutoffLow != 0 {
			return Coefficients{}, fmt.Errorf("%w: low-pass takes only a high cutoff", ErrInvalidSpec)
		}
		if err := checkCutoff("high", p.CutoffHigh); err != nil {
			return Coefficients{}, err
		}
		branches = [][]section{lowpassSections(p.CutoffHigh, fs, p.Order)}

	case HighPass:
		if p.CutoffHigh != 0 {
			return Coefficients{}, fmt.Errorf("%w: high-pass takes only a low cutoff", ErrInvalidSpec)
		}
		if err := checkCutoff("low", p.CutoffLow); err != nil {
			return Coefficients{}, err
		}
		branches = [][]section{highpassSections(p.CutoffLow, fs, p.Order)}

	case BandPass, BandStop:
		if err := checkCutoff("low", p.CutoffLow); err != nil {
			return Coefficients{}, err
		}
		if err := checkCutoff("high", p.CutoffHigh); err != nil {
			return Coefficients{}, err
		}
		if p.CutoffLow >= p.CutoffHigh {
			return Coefficients{}, fmt.Errorf("%w: low cutoff %g Hz must be below high cutoff %g Hz",
				ErrInvalidSpec, p.CutoffLow, p.CutoffHigh)
		}
		if p.Kind == BandPass {
			cascade := append(highpassSections(p.CutoffLow, fs, p.Order),
				lowpassSections(p.CutoffHigh, fs, p.Order)...)
			branches = [][]section{cascade}
		} else {
			branches = [][]section{
				lowpassSections(p.CutoffLow, fs, p.Order),
				highpassSections(p.CutoffHigh, fs, p.Order),
			}
		}

	default:
		return Coefficients{}, fmt.Errorf("%w: unknown filter kind %d", ErrInvalidSpec, int(p.Kind))
	}

	return Coefficients{branches: branches, scale: p.VolumeScale}, nil
}

// Apply filters the waveform, multiplies by the profile's volume scale,
// and rescales only if the peak exceeds full scale (so the output never
// clips). Silence passes through untouched. The input is not modified.
func Apply(c Coefficients, w wave.Waveform) wave.Waveform {
	out := make([]float64, len(w.Samples))
	for _, branch := range c.branches {
		processBlock(branch, w.Samples, out)
	}

	scale := c.scale
	if scale == 0 {
		scale = 1
	}
	peak := 0.0
	for i := range out {
		out[i] *= scale
		if a := math.Abs(out[i]); a > peak {
			peak = a
		}
	}
	if peak > 1.0 {
		norm := 1.0 / peak
		for i := range out {
			out[i] *= norm
		}
	}

	return wave.Waveform{Samples: out, SampleRate: w.SampleRate}
}

// Run designs and applies in one step.
func Run(p Profile, w wave.Waveform) (wave.Waveform, error) {
	c, err := Design(p, w.SampleRate)
	if err != nil {
		return wave.Waveform{}, err
	}
	return Apply(c, w), nil
}
