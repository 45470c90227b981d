// SPDX-License-Identifier: MIT

// Package analysis computes short-time spectra of waveforms: pooled
// spectrograms for visualization and per-frame audiometric band levels
// for the live monitors.
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"soundcheck/internal/log"
	"soundcheck/internal/wave"
	"soundcheck/pkg/bitint"
)

const (
	DefaultFFTSize = 1024
	DefaultHopSize = 512

	// floorDB is the spectrogram noise floor relative to the peak.
	floorDB = -80.0

	// Pooling caps, keep JSON payloads bounded.
	maxPooledBins   = 96
	maxPooledFrames = 240
)

// Sink receives one payload per analyzed frame. The WebSocket hub and
// test doubles satisfy it.
type Sink interface {
	Send(data any) error
}

// SpectrumFrame is the live payload handed to the sink after each
// analyzed frame. Bands maps test frequencies (as decimal strings, the
// JSON-friendly form) to linear levels in [0, 1].
type SpectrumFrame struct {
	Type  string             `json:"type"`
	Seq   uint64             `json:"seq"`
	TimeS float64            `json:"time_s"`
	Bands map[string]float64 `json:"bands"`
}

// Spectrogram is a pooled time-frequency power grid. Power is in dB
// relative to the loudest cell, floored at -80 dB; Power[i] is the
// frame at Times[i], one value per entry of Frequencies.
type Spectrogram struct {
	Frequencies []float64   `json:"frequencies"`
	Times       []float64   `json:"times"`
	Power       [][]float64 `json:"power"`
}

// SpectrogramPair holds the before/after spectra of a simulation.
type SpectrogramPair struct {
	Input  Spectrogram `json:"input"`
	Output Spectrogram `json:"output"`
}

// Pre-allocated buffers for the per-frame transform.
type stftWorkspace struct {
	input  []float64
	coeffs []complex128
	power  []float64
	window []float64
}

// Processor performs windowed FFT analysis frame by frame. It keeps
// the most recent band frame for polling consumers and optionally
// forwards every frame to a Sink. Safe for concurrent use; frames are
// serialized internally.
type Processor struct {
	fft        *fourier.FFT
	fftSize    int
	hop        int
	sampleRate float64
	windowSum  float64
	bands      []bandEdge
	sink       Sink

	workspace stftWorkspace

	mu        sync.RWMutex
	seq       uint64
	lastBands []float64
}

// NewProcessor builds a processor. fftSize must be a power of two, hop
// and sampleRate positive. sink may be nil.
func NewProcessor(fftSize, hop int, sampleRate float64, windowType WindowFunc, sink Sink) (*Processor, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of two, got %d", fftSize)
	}
	if hop <= 0 {
		return nil, fmt.Errorf("hop size must be positive, got %d", hop)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}

	windowCoeffs := make([]float64, fftSize)
	applyWindow(windowCoeffs, windowType)
	windowSum := 0.0
	for _, c := range windowCoeffs {
		windowSum += c
	}

	bins := fftSize/2 + 1
	bands := audiometricBands(sampleRate)

	return &Processor{
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		hop:        hop,
		sampleRate: sampleRate,
		windowSum:  windowSum,
		bands:      bands,
		sink:       sink,
		workspace: stftWorkspace{
			input:  make([]float64, fftSize),
			coeffs: make([]complex128, bins),
			power:  make([]float64, bins),
			window: windowCoeffs,
		},
		lastBands: make([]float64, len(bands)),
	}, nil
}

// FFTSize returns the configured transform size.
func (p *Processor) FFTSize() int { return p.fftSize }

// HopSize returns the configured frame advance.
func (p *Processor) HopSize() int { return p.hop }

// SampleRate returns the rate the frequency axes are computed for.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// FrequencyForBin returns the center frequency in Hz of an FFT bin.
func (p *Processor) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin > p.fftSize/2 {
		return 0
	}
	return float64(bin) * p.sampleRate / float64(p.fftSize)
}

// BandFrequencies returns the band centers in Hz, one per entry of a
// band frame.
func (p *Processor) BandFrequencies() []int {
	out := make([]int, len(p.bands))
	for i, b := range p.bands {
		out[i] = b.center
	}
	return out
}

// LatestBands returns a copy of the most recent band frame. Levels are
// linear amplitudes clamped to [0, 1]; all zero before the first frame.
func (p *Processor) LatestBands() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]float64, len(p.lastBands))
	copy(out, p.lastBands)
	return out
}

// ProcessBuffer analyzes one live buffer from a playback tap. Buffers
// shorter than the FFT size are zero-padded, longer ones truncated.
func (p *Processor) ProcessBuffer(samples []float64) {
	p.mu.Lock()
	timeS := float64(p.seq) * float64(p.hop) / p.sampleRate
	p.frame(samples, timeS)
	p.mu.Unlock()
}

// Analyze computes the pooled spectrogram of a whole waveform. Every
// frame also refreshes the latest band frame and feeds the sink, so a
// connected monitor sees the clip scroll by.
func (p *Processor) Analyze(w wave.Waveform) Spectrogram {
	n := len(w.Samples)
	if n == 0 {
		return Spectrogram{}
	}

	var rows [][]float64
	var times []float64

	p.mu.Lock()
	for start := 0; start < n; start += p.hop {
		end := start + p.fftSize
		if end > n {
			end = n
		}
		timeS := (float64(start) + float64(p.fftSize)/2) / p.sampleRate
		p.frame(w.Samples[start:end], timeS)

		row := make([]float64, len(p.workspace.power))
		copy(row, p.workspace.power)
		rows = append(rows, row)
		times = append(times, timeS)
	}
	p.mu.Unlock()

	freqs := make([]float64, len(p.workspace.power))
	for i := range freqs {
		freqs[i] = p.FrequencyForBin(i)
	}
	return poolAndScale(rows, times, freqs)
}

// Pair analyzes the input and output of a simulation.
func (p *Processor) Pair(in, out wave.Waveform) SpectrogramPair {
	return SpectrogramPair{Input: p.Analyze(in), Output: p.Analyze(out)}
}

// frame runs one windowed transform. Caller holds p.mu. The workspace
// power buffer holds normalized power per bin afterwards; band levels
// and the sink are updated from it.
func (p *Processor) frame(samples []float64, timeS float64) {
	inputLen := len(samples)
	for i := 0; i < p.fftSize; i++ {
		if i < inputLen {
			p.workspace.input[i] = samples[i] * p.workspace.window[i]
		} else {
			p.workspace.input[i] = 0
		}
	}

	p.fft.Coefficients(p.workspace.coeffs, p.workspace.input)

	// Amplitude-normalize so a full-scale tone lands near power 1
	// regardless of fftSize or window choice.
	norm := 2.0 / p.windowSum
	for i, c := range p.workspace.coeffs {
		mag := cmplx.Abs(c) * norm
		p.workspace.power[i] = mag * mag
	}

	for bi, band := range p.bands {
		sum := 0.0
		for i := range p.workspace.power {
			freq := p.FrequencyForBin(i)
			if freq >= band.low && freq < band.high {
				sum += p.workspace.power[i]
			}
		}
		p.lastBands[bi] = math.Min(1.0, math.Sqrt(sum))
	}
	p.seq++

	if p.sink != nil {
		bands := make(map[string]float64, len(p.bands))
		for i, b := range p.bands {
			bands[strconv.Itoa(b.center)] = p.lastBands[i]
		}
		frame := SpectrumFrame{
			Type:  "spectrum",
			Seq:   p.seq,
			TimeS: timeS,
			Bands: bands,
		}
		if err := p.sink.Send(frame); err != nil {
			log.Debugf("Analysis: dropping spectrum frame: %v", err)
		}
	}
}

// poolAndScale max-pools the linear power grid down to the transport
// caps, then converts to dB relative to the loudest cell.
func poolAndScale(rows [][]float64, times, freqs []float64) Spectrogram {
	binStride := poolStride(len(freqs), maxPooledBins)
	frameStride := poolStride(len(rows), maxPooledFrames)

	pooledFreqs := poolAxis(freqs, binStride)
	pooledTimes := poolAxis(times, frameStride)

	pooled := make([][]float64, 0, len(pooledTimes))
	maxPower := 0.0
	for f := 0; f < len(rows); f += frameStride {
		row := make([]float64, len(pooledFreqs))
		for g := f; g < f+frameStride && g < len(rows); g++ {
			src := rows[g]
			for b := 0; b < len(src); b++ {
				if v := src[b]; v > row[b/binStride] {
					row[b/binStride] = v
				}
			}
		}
		for _, v := range row {
			if v > maxPower {
				maxPower = v
			}
		}
		pooled = append(pooled, row)
	}

	for _, row := range pooled {
		for i, v := range row {
			if maxPower <= 0 || v <= 0 {
				row[i] = floorDB
				continue
			}
			row[i] = math.Max(floorDB, 10*math.Log10(v/maxPower))
		}
	}

	return Spectrogram{Frequencies: pooledFreqs, Times: pooledTimes, Power: pooled}
}

func poolStride(n, limit int) int {
	if n <= limit {
		return 1
	}
	return (n + limit - 1) / limit
}

// poolAxis keeps the first coordinate of each pooled group.
func poolAxis(axis []float64, stride int) []float64 {
	out := make([]float64, 0, (len(axis)+stride-1)/stride)
	for i := 0; i < len(axis); i += stride {
		out = append(out, axis[i])
	}
	return out
}
