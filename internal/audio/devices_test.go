package audio

import (
	"errors"
	"strings"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Errorf("Terminate error: %v", err)
		}
	})
}

// stubDevices installs a fixed host device list: an input-only
// microphone at index 0 and two playback devices at 1 and 2.
func stubDevices(t *testing.T) []*portaudio.DeviceInfo {
	t.Helper()
	devices := []*portaudio.DeviceInfo{
		{Name: "mock mic", MaxInputChannels: 1, DefaultSampleRate: 44100},
		{Name: "mock speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{Name: "mock headset", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 44100},
	}

	orig := paDevicesFunc
	t.Cleanup(func() { paDevicesFunc = orig })
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return devices, nil
	}
	return devices
}

func TestOutputDevicesHost(t *testing.T) {
	setupPortAudio(t)

	devices, err := OutputDevices()
	if err != nil {
		t.Fatalf("OutputDevices error: %v", err)
	}
	if len(devices) == 0 {
		t.Skip("No output devices found on system")
	}
	for _, d := range devices {
		if d.Name == "" {
			t.Errorf("Device %d has empty name", d.ID)
		}
		if d.MaxOutputChannels <= 0 {
			t.Errorf("Device %d has no output channels", d.ID)
		}
		if d.DefaultSampleRate <= 0 {
			t.Errorf("Device %d has invalid sample rate: %f", d.ID, d.DefaultSampleRate)
		}
	}
}

func TestOutputDevicesFiltersInputOnly(t *testing.T) {
	stubDevices(t)

	devices, err := OutputDevices()
	if err != nil {
		t.Fatalf("OutputDevices error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	// IDs index the full host list so they survive the filtering.
	if devices[0].ID != 1 || devices[0].Name != "mock speakers" {
		t.Errorf("device 0 = %+v, want ID 1 (mock speakers)", devices[0])
	}
	if devices[1].ID != 2 || devices[1].Name != "mock headset" {
		t.Errorf("device 1 = %+v, want ID 2 (mock headset)", devices[1])
	}
}

func TestOutputDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, errors.New("mock error")
	}

	_, err := OutputDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestOutputDeviceDefault(t *testing.T) {
	want := &portaudio.DeviceInfo{Name: "mock default", MaxOutputChannels: 2}
	orig := paDefaultOutput
	defer func() { paDefaultOutput = orig }()
	paDefaultOutput = func() (*portaudio.DeviceInfo, error) {
		return want, nil
	}

	got, err := outputDevice(DefaultDeviceID)
	if err != nil {
		t.Fatalf("outputDevice error: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want the default device", got)
	}
}

func TestOutputDeviceDefaultError(t *testing.T) {
	orig := paDefaultOutput
	defer func() { paDefaultOutput = orig }()
	paDefaultOutput = func() (*portaudio.DeviceInfo, error) {
		return nil, errors.New("mock error")
	}

	_, err := outputDevice(DefaultDeviceID)
	if err == nil || !strings.Contains(err.Error(), "no default output device") {
		t.Errorf("expected default device error, got %v", err)
	}
}

func TestOutputDeviceByID(t *testing.T) {
	devices := stubDevices(t)

	got, err := outputDevice(1)
	if err != nil {
		t.Fatalf("outputDevice(1) error: %v", err)
	}
	if got != devices[1] {
		t.Errorf("outputDevice(1) = %+v, want mock speakers", got)
	}
}

func TestOutputDeviceInputOnly(t *testing.T) {
	stubDevices(t)

	_, err := outputDevice(0)
	if err == nil || !strings.Contains(err.Error(), "no output channels") {
		t.Errorf("expected output channel error, got %v", err)
	}
}

func TestOutputDeviceOutOfRange(t *testing.T) {
	stubDevices(t)

	for _, id := range []int{-2, 3, 99} {
		if _, err := outputDevice(id); err == nil || !strings.Contains(err.Error(), "invalid device ID") {
			t.Errorf("outputDevice(%d): expected invalid ID error, got %v", id, err)
		}
	}
}
