// SPDX-License-Identifier: MIT

// Package simulate renders how a clip sounds to a hearing-impaired
// listener. Each named profile is a fixed chain of Butterworth filters
// plus an overall volume scale, applied to at most the first ten
// seconds of the source.
package simulate

import (
	"errors"
	"fmt"
	"strings"

	"soundcheck/internal/analysis"
	"soundcheck/internal/filter"
	"soundcheck/internal/wave"
)

// ErrUnknownProfile reports a profile name outside the four supported
// simulations.
var ErrUnknownProfile = errors.New("unknown hearing profile")

// MaxClipSeconds bounds the processed clip length. Longer sources are
// truncated before filtering.
const MaxClipSeconds = 10.0

// Profile selects one of the fixed hearing loss simulations.
type Profile int

const (
	ProfileMild Profile = iota
	ProfileHighFrequency
	ProfileModerate
	ProfileSevere
)

// Info describes a profile for discovery endpoints.
type Info struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	CutoffLow   float64 `json:"cutoff_low,omitempty"`
	CutoffHigh  float64 `json:"cutoff_high,omitempty"`
	VolumeScale float64 `json:"volume_scale"`
	Description string  `json:"description"`
}

type definition struct {
	name       string
	kind       string
	cutoffLow  float64
	cutoffHigh float64
	desc       string
	stages     []filter.Profile
}

// The four simulations. Stage volume scales multiply out to the
// profile's overall loudness; intermediate stages stay at unity so the
// final normalization in filter.Apply sees the finished signal.
var definitions = map[Profile]definition{
	ProfileMild: {
		name:       "mild",
		kind:       "band-stop",
		cutoffLow:  1000,
		cutoffHigh: 4000,
		desc:       "Speech consonants fade: the 1-4 kHz band is notched out and the clip is softened to 70% loudness.",
		stages: []filter.Profile{
			{Kind: filter.BandStop, CutoffLow: 1000, CutoffHigh: 4000, Order: 3, VolumeScale: 0.70},
		},
	},
	ProfileHighFrequency: {
		name:       "high-frequency",
		kind:       "low-pass",
		cutoffHigh: 4000,
		desc:       "The classic presbycusis pattern: everything above 4 kHz is removed while loudness stays intact.",
		stages: []filter.Profile{
			{Kind: filter.LowPass, CutoffHigh: 4000, Order: 6, VolumeScale: 1.00},
		},
	},
	ProfileModerate: {
		name:       "moderate",
		kind:       "high-pass + low-pass",
		cutoffLow:  500,
		cutoffHigh: 3000,
		desc:       "Hearing narrows to the 500-3000 Hz core and overall loudness drops to half.",
		stages: []filter.Profile{
			{Kind: filter.HighPass, CutoffLow: 500, Order: 2, VolumeScale: 1.00},
			{Kind: filter.LowPass, CutoffHigh: 3000, Order: 4, VolumeScale: 0.50},
		},
	},
	ProfileSevere: {
		name:       "severe",
		kind:       "band-pass",
		cutoffLow:  500,
		cutoffHigh: 2000,
		desc:       "Only a narrow 500-2000 Hz window remains, at 30% of the original loudness.",
		stages: []filter.Profile{
			{Kind: filter.BandPass, CutoffLow: 500, CutoffHigh: 2000, Order: 5, VolumeScale: 0.30},
		},
	},
}

// Profiles lists the supported simulations in presentation order.
func Profiles() []Profile {
	return []Profile{ProfileMild, ProfileHighFrequency, ProfileModerate, ProfileSevere}
}

func (p Profile) String() string {
	if d, ok := definitions[p]; ok {
		return d.name
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

// Info returns the profile's static description.
func (p Profile) Info() Info {
	d, ok := definitions[p]
	if !ok {
		return Info{}
	}
	scale := 1.0
	for _, st := range d.stages {
		scale *= st.VolumeScale
	}
	return Info{
		Name:        d.name,
		Kind:        d.kind,
		CutoffLow:   d.cutoffLow,
		CutoffHigh:  d.cutoffHigh,
		VolumeScale: scale,
		Description: d.desc,
	}
}

// ParseProfile converts a profile name to its enum value. Names are
// case-insensitive; "high_frequency" is accepted as an alias.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mild":
		return ProfileMild, nil
	case "high-frequency", "high_frequency", "highfrequency":
		return ProfileHighFrequency, nil
	case "moderate":
		return ProfileModerate, nil
	case "severe":
		return ProfileSevere, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProfile, s)
	}
}

// Result is one finished simulation.
type Result struct {
	Output    wave.Waveform
	Spectra   analysis.SpectrogramPair
	InputRMS  float64
	OutputRMS float64
}

// Run truncates the source to MaxClipSeconds, applies the profile's
// filter chain, and computes before/after spectrograms. The source is
// never modified.
func Run(src wave.Waveform, profile Profile) (Result, error) {
	return RunWithSink(src, profile, nil)
}

// RunWithSink is Run with a live tap: the per-frame band levels of the
// input and output spectrograms are pushed to sink as they are
// computed, which feeds the WebSocket and UDP monitors during a
// simulation.
func RunWithSink(src wave.Waveform, profile Profile, sink analysis.Sink) (Result, error) {
	d, ok := definitions[profile]
	if !ok {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownProfile, int(profile))
	}

	clip := src.Truncate(MaxClipSeconds)

	out := clip
	for _, stage := range d.stages {
		var err error
		out, err = filter.Run(stage, out)
		if err != nil {
			return Result{}, fmt.Errorf("simulating %s: %w", d.name, err)
		}
	}

	proc, err := analysis.NewProcessor(analysis.DefaultFFTSize, analysis.DefaultHopSize,
		float64(clip.SampleRate), analysis.Hann, sink)
	if err != nil {
		return Result{}, fmt.Errorf("simulating %s: %w", d.name, err)
	}

	return Result{
		Output:    out,
		Spectra:   proc.Pair(clip, out),
		InputRMS:  clip.RMS(),
		OutputRMS: out.RMS(),
	}, nil
}
