// SPDX-License-Identifier: MIT

// Package bitint provides the power-of-two helpers behind FFT window
// validation and buffer sizing.
package bitint

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of two. A power
// of two has exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n. Values below
// one round up to 1. Shifting by Len(n-1) rather than Len(n) keeps
// exact powers of two fixed instead of doubling them.
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
