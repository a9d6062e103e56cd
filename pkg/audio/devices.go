package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes an audio input device
type Device struct {
	Index      int
	Name       string
	SampleRate float64
	Default    bool
}

// Devices lists available input devices. The audio subsystem must be
// initialized (NewSession) before calling.
func Devices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: could not query audio devices: %v", ErrDeviceUnavailable, err)
	}

	var defaultInput *portaudio.DeviceInfo
	if hostAPI, err := portaudio.DefaultHostApi(); err == nil {
		defaultInput = hostAPI.DefaultInputDevice
	}

	var out []Device
	for i, dev := range devices {
		if dev.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, Device{
			Index:      i,
			Name:       dev.Name,
			SampleRate: dev.DefaultSampleRate,
			Default:    defaultInput != nil && dev.Name == defaultInput.Name,
		})
	}
	return out, nil
}
