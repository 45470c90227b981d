// SPDX-License-Identifier: MIT
package filter

// section is a single second-order IIR stage, normalized so a0 == 1.
// First-order stages set b2 and a2 to zero.
type section struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// chainState holds the Direct Form II Transposed delay registers for one
// cascade of sections. A fresh state is allocated per Apply call, which
// keeps the filter functions pure and safe for concurrent use.
type chainState struct {
	d [][2]float64
}

func newChainState(sections []section) *chainState {
	return &chainState{d: make([][2]float64, len(sections))}
}

// process runs one sample through the cascade.
func (st *chainState) process(sections []section, x float64) float64 {
	acc := x
	for i := range sections {
		s := &sections[i]
		y := s.b0*acc + st.d[i][0]
		st.d[i][0] = s.b1*acc - s.a1*y + st.d[i][1]
		st.d[i][1] = s.b2*acc - s.a2*y
		acc = y
	}
	return acc
}

// processBlock filters src through the cascade, adding the result into
// dst. Accumulating lets parallel branches (band-stop) share one output
// buffer.
func processBlock(sections []section, src, dst []float64) {
	st := newChainState(sections)
	for i, x := range src {
		dst[i] += st.process(sections, x)
	}
}
