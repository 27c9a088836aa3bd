package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// EncodeMP3 converts a raw S16LE PCM buffer to MP3 in one shot.
// It is a pure function of its inputs; no state is kept between calls.
func EncodeMP3(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if channels <= 0 {
		return nil, errors.New("channels must be positive")
	}
	if len(pcm) == 0 {
		return nil, errors.New("empty PCM buffer")
	}

	numSamples := len(pcm) / 2
	monoSamples := make([]int16, numSamples)

	reader := bytes.NewReader(pcm)
	if err := binary.Read(reader, binary.LittleEndian, monoSamples); err != nil {
		return nil, fmt.Errorf("failed to read PCM samples: %w", err)
	}

	// WORKAROUND: shine-mp3 Write() mishandles mono input (advances by
	// samples_per_pass * 2), so duplicate mono samples into stereo (L=R).
	samples := monoSamples
	if channels == 1 {
		samples = make([]int16, numSamples*2)
		for i, sample := range monoSamples {
			samples[i*2] = sample
			samples[i*2+1] = sample
		}
		channels = 2
	}

	slog.Debug("encoding PCM to MP3",
		"samples", numSamples,
		"sampleRate", sampleRate,
		"channels", channels)

	encoder := mp3encoder.NewEncoder(sampleRate, channels)

	var out bytes.Buffer
	if err := encoder.Write(&out, samples); err != nil {
		return nil, fmt.Errorf("failed to encode MP3: %w", err)
	}

	return out.Bytes(), nil
}
