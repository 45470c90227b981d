// SPDX-License-Identifier: MIT
package analysis

import (
	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the taper applied to each analysis frame.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// applyWindow fills coeffs with the selected window shape. Unknown
// types fall back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// Window funcs multiply in place, so seed with unity gain first.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hann(coeffs)
	}
}
