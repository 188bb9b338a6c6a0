package wav

import (
	"encoding/binary"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/errors"
)

// Dequantize is the inverse of Quantize for non-clamped values.
func Dequantize(v int16) float32 {
	if v < 0 {
		return float32(float64(v) / 32768)
	}
	return float32(float64(v) / 32767)
}

// Decode parses a 16-bit PCM WAV file into a planar buffer.
func Decode(data []byte) (*audio.Buffer, error) {
	h, samples, err := parseContainer(data)
	if err != nil {
		return nil, errors.DecodeFailed(err)
	}
	channels := int(h.Channels)
	frames := h.Frames()
	buf := audio.NewBuffer(int(h.SampleRate), channels, frames)
	off := 0
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			buf.Channels[c][f] = Dequantize(int16(binary.LittleEndian.Uint16(samples[off:])))
			off += BytesPerSample
		}
	}
	return buf, nil
}

// ReadHeader parses only the header of a WAV file.
func ReadHeader(data []byte) (Header, error) {
	h, _, err := parseContainer(data)
	if err != nil {
		return Header{}, errors.DecodeFailed(err)
	}
	return h, nil
}
