// SPDX-License-Identifier: MIT
package filter

import "math"

// butterworthQ returns the Q of the index-th biquad in an order-N
// Butterworth cascade: 1 / (2*sin(pi*(2i+1)/(2N))). The pole pairs are
// ordered lowest-Q first.
func butterworthQ(order, index int) float64 {
	return 1 / (2 * math.Sin(math.Pi*float64(2*index+1)/(2*float64(order))))
}

// lowpassSections designs an order-N Butterworth low-pass at cutoff Hz as
// a cascade of RBJ biquads, with a trailing first-order stage when the
// order is odd.
func lowpassSections(cutoff, sampleRate float64, order int) []section {
	sections := make([]section, 0, (order+1)/2)
	for i := 0; i < order/2; i++ {
		sections = append(sections, rbjLowpass(cutoff, butterworthQ(order, i), sampleRate))
	}
	if order%2 == 1 {
		sections = append(sections, firstOrderLowpass(cutoff, sampleRate))
	}
	return sections
}

func highpassSections(cutoff, sampleRate float64, order int) []section {
	sections := make([]section, 0, (order+1)/2)
	for i := 0; i < order/2; i++ {
		sections = append(sections, rbjHighpass(cutoff, butterworthQ(order, i), sampleRate))
	}
	if order%2 == 1 {
		sections = append(sections, firstOrderHighpass(cutoff, sampleRate))
	}
	return sections
}

// rbjLowpass computes one low-pass biquad from the Audio EQ Cookbook
// formulas, normalized by a0.
func rbjLowpass(cutoff, q, sampleRate float64) section {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * q)

	a0 := 1 + alpha
	return section{
		b0: (1 - cw) / 2 / a0,
		b1: (1 - cw) / a0,
		b2: (1 - cw) / 2 / a0,
		a1: -2 * cw / a0,
		a2: (1 - alpha) / a0,
	}
}

func rbjHighpass(cutoff, q, sampleRate float64) section {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * q)

	a0 := 1 + alpha
	return section{
		b0: (1 + cw) / 2 / a0,
		b1: -(1 + cw) / a0,
		b2: (1 + cw) / 2 / a0,
		a1: -2 * cw / a0,
		a2: (1 - alpha) / a0,
	}
}

// firstOrderLowpass is the single-pole stage for odd orders, from the
// bilinear transform with prewarped cutoff k = tan(pi*fc/fs).
func firstOrderLowpass(cutoff, sampleRate float64) section {
	k := math.Tan(math.Pi * cutoff / sampleRate)
	norm := 1 / (1 + k)
	return section{
		b0: k * norm,
		b1: k * norm,
		a1: (k - 1) * norm,
	}
}

func firstOrderHighpass(cutoff, sampleRate float64) section {
	k := math.Tan(math.Pi * cutoff / sampleRate)
	norm := 1 / (1 + k)
	return section{
		b0: norm,
		b1: -norm,
		a1: (k - 1) * norm,
	}
}
