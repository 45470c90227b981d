// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"soundcheck/internal/wave"
	"soundcheck/pkg/utils"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := wave.Waveform{
		Samples:    utils.SineWave(2000, 8000, 440),
		SampleRate: 8000,
	}

	data, err := EncodeWAV(src)
	if err != nil {
		t.Fatalf("EncodeWAV error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Fatalf("encoded data does not start with RIFF header")
	}

	got, err := DecodeWAV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeWAV error: %v", err)
	}
	if got.SampleRate != src.SampleRate {
		t.Errorf("SampleRate = %d, want %d", got.SampleRate, src.SampleRate)
	}
	if len(got.Samples) != len(src.Samples) {
		t.Fatalf("sample count = %d, want %d", len(got.Samples), len(src.Samples))
	}
	for i := range src.Samples {
		if diff := math.Abs(got.Samples[i] - src.Samples[i]); diff > 1e-3 {
			t.Fatalf("sample %d = %f, want %f (diff %g)", i, got.Samples[i], src.Samples[i], diff)
		}
	}
}

func TestEncodeWAVClampsOverdrive(t *testing.T) {
	src := wave.Waveform{Samples: []float64{2.5, -2.5, 0}, SampleRate: 8000}

	data, err := EncodeWAV(src)
	if err != nil {
		t.Fatalf("EncodeWAV error: %v", err)
	}
	got, err := DecodeWAV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeWAV error: %v", err)
	}

	if got.Samples[0] < 0.99 || got.Samples[0] > 1 {
		t.Errorf("clamped positive sample = %f, want ~1", got.Samples[0])
	}
	if got.Samples[1] > -0.99 || got.Samples[1] < -1 {
		t.Errorf("clamped negative sample = %f, want ~-1", got.Samples[1])
	}
	if got.Samples[2] != 0 {
		t.Errorf("zero sample = %f, want 0", got.Samples[2])
	}
}

func TestEncodeWAVInvalidSampleRate(t *testing.T) {
	_, err := EncodeWAV(wave.Waveform{Samples: []float64{0.1}, SampleRate: 0})
	if err == nil || !strings.Contains(err.Error(), "sample rate") {
		t.Errorf("expected sample rate error, got %v", err)
	}
}

func TestDecodeWAVGarbage(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not a wav file")))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeWAVNonPCM(t *testing.T) {
	data, err := EncodeWAV(wave.Waveform{
		Samples:    utils.SineWave(256, 8000, 440),
		SampleRate: 8000,
	})
	if err != nil {
		t.Fatalf("EncodeWAV error: %v", err)
	}

	// The audio format tag sits at byte 20 of the canonical header.
	// 3 marks IEEE float, which the decoder must refuse.
	data[20] = 3

	_, err = DecodeWAV(bytes.NewReader(data))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "not PCM") {
		t.Errorf("expected PCM format error, got %v", err)
	}
}

func TestDecodeWAVStereoMixdown(t *testing.T) {
	const frames = 64
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 2, SampleRate: 8000},
		Data:           make([]int, frames*2),
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		buf.Data[i*2] = 1000
		buf.Data[i*2+1] = 3000
	}

	ws := &bufferSeeker{}
	enc := wav.NewEncoder(ws, 8000, 16, 2, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoder write error: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encoder close error: %v", err)
	}

	got, err := DecodeWAV(bytes.NewReader(ws.data))
	if err != nil {
		t.Fatalf("DecodeWAV error: %v", err)
	}
	if len(got.Samples) != frames {
		t.Fatalf("sample count = %d, want %d", len(got.Samples), frames)
	}
	want := 2000.0 / 32768.0
	for i, s := range got.Samples {
		if math.Abs(s-want) > 1e-9 {
			t.Fatalf("sample %d = %f, want %f", i, s, want)
		}
	}
}

func TestDecodeWAVEightBit(t *testing.T) {
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           []int{128, 255, 0, 192},
		SourceBitDepth: 8,
	}

	ws := &bufferSeeker{}
	enc := wav.NewEncoder(ws, 8000, 8, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoder write error: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encoder close error: %v", err)
	}

	got, err := DecodeWAV(bytes.NewReader(ws.data))
	if err != nil {
		t.Fatalf("DecodeWAV error: %v", err)
	}

	want := []float64{0, 127.0 / 128.0, -1, 0.5}
	if len(got.Samples) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(got.Samples), len(want))
	}
	for i := range want {
		if math.Abs(got.Samples[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %f, want %f", i, got.Samples[i], want[i])
		}
	}
}

func TestBufferSeekerSmallWrites(t *testing.T) {
	ws := &bufferSeeker{}
	for i := 0; i < 300; i++ {
		if _, err := ws.Write([]byte{byte(i)}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if len(ws.data) != 300 {
		t.Fatalf("len = %d, want 300", len(ws.data))
	}
	for i, v := range ws.data {
		if v != byte(i) {
			t.Fatalf("byte %d = %d, want %d", i, v, byte(i))
		}
	}

	// Seeking back and rewriting must not disturb the length; that is
	// how the encoder patches chunk sizes into the header.
	if _, err := ws.Seek(4, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Write([]byte{0xAA, 0xBB}); err != nil {
		t.Fatal(err)
	}
	if len(ws.data) != 300 {
		t.Fatalf("len after overwrite = %d, want 300", len(ws.data))
	}
	if ws.data[4] != 0xAA || ws.data[5] != 0xBB {
		t.Fatalf("overwrite not applied: % x", ws.data[4:6])
	}
}

func BenchmarkEncodeWAV(b *testing.B) {
	src := wave.Waveform{
		Samples:    utils.SineWave(44100, 44100, 440),
		SampleRate: 44100,
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeWAV(src); err != nil {
			b.Fatal(err)
		}
	}
}
