// SPDX-License-Identifier: MIT

package transport

import (
	"strconv"
	"sync"

	"soundcheck/internal/analysis"
	"soundcheck/internal/audiometry"
	"soundcheck/internal/transport/udp"
)

// bandRelay tees analysis frames to a downstream transport while
// keeping the latest band levels for pull-based consumers. Simulations
// come and go per request, each with its own processor; the relay is
// the stable endpoint the UDP publisher polls between them.
type bandRelay struct {
	next   Transport
	freqs  []int
	mu     sync.Mutex
	latest []float64
}

func newBandRelay(next Transport) *bandRelay {
	return &bandRelay{
		next:  next,
		freqs: audiometry.TestFrequencies(),
	}
}

// Send records the band levels of spectrum frames in canonical
// frequency order, then forwards the payload downstream.
func (r *bandRelay) Send(data any) error {
	if frame, ok := data.(analysis.SpectrumFrame); ok {
		levels := make([]float64, len(r.freqs))
		for i, f := range r.freqs {
			levels[i] = frame.Bands[strconv.Itoa(f)]
		}
		r.mu.Lock()
		r.latest = levels
		r.mu.Unlock()
	}
	return r.next.Send(data)
}

// LatestBands returns a copy of the most recent band frame, or nil
// before the first frame arrives.
func (r *bandRelay) LatestBands() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return nil
	}
	out := make([]float64, len(r.latest))
	copy(out, r.latest)
	return out
}

// BandFrequencies returns the band center frequencies in Hz.
func (r *bandRelay) BandFrequencies() []int {
	out := make([]int, len(r.freqs))
	copy(out, r.freqs)
	return out
}

func (r *bandRelay) Close() error {
	return r.next.Close()
}

var (
	_ Transport        = (*bandRelay)(nil)
	_ analysis.Sink    = (*bandRelay)(nil)
	_ udp.BandProvider = (*bandRelay)(nil)
)
