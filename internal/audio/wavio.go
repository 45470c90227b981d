// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"soundcheck/internal/wave"
	"soundcheck/pkg/bitint"
)

// ErrUnsupportedFormat reports WAV input the decoder cannot turn into
// a mono float waveform: malformed headers, compressed audio, or a
// missing data chunk.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const encodeBitDepth = 16

// EncodeWAV renders a waveform as a 16-bit PCM mono WAV file in
// memory. Samples outside [-1, 1] are clamped.
func EncodeWAV(w wave.Waveform) ([]byte, error) {
	if w.SampleRate <= 0 {
		return nil, fmt.Errorf("encode wav: invalid sample rate %d", w.SampleRate)
	}

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: 1,
			SampleRate:  w.SampleRate,
		},
		Data:           make([]int, len(w.Samples)),
		SourceBitDepth: encodeBitDepth,
	}
	for i, s := range w.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}

	ws := &bufferSeeker{}
	enc := wav.NewEncoder(ws, w.SampleRate, encodeBitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return ws.data, nil
}

// DecodeWAV parses PCM WAV data into a waveform. Multichannel input
// is mixed down to mono by averaging the channels. Only uncompressed
// PCM is accepted; anything else fails with ErrUnsupportedFormat.
func DecodeWAV(r io.ReadSeeker) (wave.Waveform, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return wave.Waveform{}, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != 1 {
		return wave.Waveform{}, fmt.Errorf("%w: audio format %d is not PCM", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return wave.Waveform{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return wave.Waveform{}, fmt.Errorf("%w: no audio data", ErrUnsupportedFormat)
	}

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return wave.Waveform{}, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, depth)
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)

	// 8-bit WAV stores unsigned bytes centered on 128; everything
	// wider is signed.
	scale := float64(int64(1) << (depth - 1))
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			v := float64(buf.Data[i*channels+c])
			if depth == 8 {
				v -= 128
			}
			sum += v / scale
		}
		samples[i] = sum / float64(channels)
	}

	return wave.Waveform{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// bufferSeeker is an in-memory io.WriteSeeker. The WAV encoder seeks
// back over the header to patch chunk sizes after writing samples.
type bufferSeeker struct {
	data []byte
	pos  int
}

func (b *bufferSeeker) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		// The encoder writes samples a few bytes at a time, so growth
		// has to be amortized.
		if need > cap(b.data) {
			grown := make([]byte, need, bitint.NextPowerOfTwo(need))
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:need]
		}
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *bufferSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(b.pos) + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position %d", next)
	}
	b.pos = int(next)
	return next, nil
}
