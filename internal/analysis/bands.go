// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"soundcheck/internal/audiometry"
)

// bandEdge is one audiometric energy band. Each band is centered on a
// test frequency with edges at the geometric midpoints to its
// neighbors, so the bands tile the octave-spaced protocol without
// gaps or overlap.
type bandEdge struct {
	center    int
	low, high float64
}

// audiometricBands builds one band per test frequency. The outermost
// edges extend half an octave beyond the first and last centers; the
// top band is clamped to Nyquist.
func audiometricBands(sampleRate float64) []bandEdge {
	centers := audiometry.TestFrequencies()
	nyquist := sampleRate / 2

	bands := make([]bandEdge, len(centers))
	for i, c := range centers {
		lowRef := float64(c) / 2
		if i > 0 {
			lowRef = float64(centers[i-1])
		}
		highRef := float64(c) * 2
		if i < len(centers)-1 {
			highRef = float64(centers[i+1])
		}
		bands[i] = bandEdge{
			center: c,
			low:    math.Sqrt(float64(c) * lowRef),
			high:   math.Min(math.Sqrt(float64(c)*highRef), nyquist),
		}
	}
	return bands
}
