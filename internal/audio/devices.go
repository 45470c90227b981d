package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// DefaultDeviceID selects the system default output device.
const DefaultDeviceID = -1

// PortAudio entry points go through package variables so tests can
// stub the sound card away.
var (
	paInitialize    = portaudio.Initialize
	paTerminate     = portaudio.Terminate
	paDevicesFunc   = portaudio.Devices
	paDefaultOutput = portaudio.DefaultOutputDevice
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device describes one playback-capable host device. ID indexes the
// host device list, so it stays valid for outputDevice lookups.
type Device struct {
	ID                int
	Name              string
	MaxOutputChannels int
	DefaultSampleRate float64
}

// OutputDevices returns the host devices that can play audio.
func OutputDevices() ([]Device, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("listing audio devices: %w", err)
	}

	var out []Device
	for i, d := range devices {
		if d.MaxOutputChannels <= 0 {
			continue
		}
		out = append(out, Device{
			ID:                i,
			Name:              d.Name,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		})
	}
	return out, nil
}

// outputDevice resolves a device ID to its PortAudio descriptor.
// DefaultDeviceID (-1) returns the system default output device.
func outputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == DefaultDeviceID {
		device, err := paDefaultOutput()
		if err != nil {
			return nil, fmt.Errorf("no default output device: %w", err)
		}
		return device, nil
	}

	devices, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("listing audio devices: %w", err)
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxOutputChannels <= 0 {
		return nil, fmt.Errorf("device %d (%s) has no output channels", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}
