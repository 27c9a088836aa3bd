package audio

import (
	"github.com/gen2brain/malgo"
)

// DeviceConfig describes the capture format requested from the OS device.
type DeviceConfig struct {
	Format          malgo.FormatType
	CaptureChannels int
	SampleRate      int
}

// DefaultDeviceConfig returns the capture format the transcription models
// expect: 16kHz mono signed 16-bit PCM.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Format:          malgo.FormatS16,
		CaptureChannels: 1,
		SampleRate:      16_000,
	}
}
