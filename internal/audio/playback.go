// SPDX-License-Identifier: MIT

// Package audio handles the sound card boundary: WAV encode and
// decode, PortAudio playback, and output device discovery.
package audio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"soundcheck/internal/wave"
)

// framesPerBuffer is the playback chunk size. It matches the default
// spectrum FFT size so a tap delivers full analysis frames.
const framesPerBuffer = 1024

// outputStream is the slice of the PortAudio stream API playback uses.
type outputStream interface {
	Start() error
	Write() error
	Stop() error
	Close() error
}

// paOpenPlayback opens a mono blocking-write output stream. Replaced
// in tests.
var paOpenPlayback = func(dev *portaudio.DeviceInfo, sampleRate float64, out []float32) (outputStream, error) {
	params := portaudio.HighLatencyParameters(nil, dev)
	params.Input.Channels = 0
	params.Output.Channels = 1
	params.SampleRate = sampleRate
	params.FramesPerBuffer = len(out)
	return portaudio.OpenStream(params, out)
}

// Play streams the waveform to the selected output device. The
// optional tap receives each buffer just before it is written, sized
// framesPerBuffer with the tail zero-padded, which feeds the live
// spectrum monitors. Play blocks until the clip ends or ctx is
// canceled. Initialize must have been called.
func Play(ctx context.Context, w wave.Waveform, deviceID int, tap func([]float64)) error {
	if len(w.Samples) == 0 {
		return nil
	}
	if w.SampleRate <= 0 {
		return fmt.Errorf("playback: sample rate must be positive, got %d", w.SampleRate)
	}

	dev, err := outputDevice(deviceID)
	if err != nil {
		return err
	}

	out := make([]float32, framesPerBuffer)
	stream, err := paOpenPlayback(dev, float64(w.SampleRate), out)
	if err != nil {
		return fmt.Errorf("playback: opening stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("playback: starting stream: %w", err)
	}
	defer stream.Stop()

	chunk := make([]float64, framesPerBuffer)
	for start := 0; start < len(w.Samples); start += framesPerBuffer {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := copy(chunk, w.Samples[start:])
		for i := n; i < framesPerBuffer; i++ {
			chunk[i] = 0
		}
		for i, s := range chunk {
			out[i] = float32(s)
		}

		if tap != nil {
			tap(chunk)
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("playback: writing stream: %w", err)
		}
	}
	return nil
}
