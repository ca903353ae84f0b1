package whisper

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavInfo describes the PCM payload of a decoded WAV file.
type wavInfo struct {
	SampleRate int
	Channels   int
	// PCM is the raw 16-bit signed little-endian sample data.
	PCM []byte
}

// errNotWAV is returned when the file does not start with a RIFF/WAVE header.
var errNotWAV = errors.New("not a RIFF/WAVE file")

// decodeWAV parses a 16-bit PCM WAV file and returns its format and sample
// data. Only uncompressed PCM (format tag 1) at 16 bits per sample is
// supported; that is what both the recorder and the TTS server produce.
func decodeWAV(data []byte) (wavInfo, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return wavInfo{}, errNotWAV
	}

	var info wavInfo
	sawFmt := false

	// Walk the chunk list; fmt and data may appear in any order and other
	// chunks (LIST, fact) may be interleaved.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return wavInfo{}, fmt.Errorf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return wavInfo{}, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return wavInfo{}, fmt.Errorf("unsupported audio format %d, want PCM", format)
			}
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bits != 16 {
				return wavInfo{}, fmt.Errorf("unsupported bit depth %d, want 16", bits)
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			sawFmt = true
		case "data":
			info.PCM = data[body : body+size]
		}

		// Chunks are word-aligned.
		pos = body + size + size%2
	}

	if !sawFmt {
		return wavInfo{}, errors.New("missing fmt chunk")
	}
	if info.PCM == nil {
		return wavInfo{}, errors.New("missing data chunk")
	}
	return info, nil
}

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to the range [-1.0, 1.0]. Any trailing odd byte is
// silently ignored.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// pcmToFloat32Mono down-mixes multi-channel 16-bit PCM to mono float32 by
// averaging all channels per frame. If channels is 1 this is equivalent to
// pcmToFloat32.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	samplesPerChannel := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerChannel)
	for i := range samplesPerChannel {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
