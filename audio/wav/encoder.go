// Package wav encodes planar float audio into the canonical 44-byte-header,
// 16-bit linear PCM WAV layout expected by the speaker-recognition service,
// and parses that layout back.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/errors"
)

// maxDataBytes keeps the RIFF size field (36 + data) within uint32.
const maxDataBytes = math.MaxUint32 - 36

// Quantize maps a float sample to int16. The sample is clamped to [-1, 1];
// negative values scale by 32768 and non-negative values by 32767, truncating
// toward zero. NaN encodes as silence.
func Quantize(s float32) int16 {
	v := float64(s)
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}

// Size returns the encoded length of frames frames of channels channels.
func Size(channels, frames int) int {
	return HeaderSize + frames*channels*BytesPerSample
}

// Encode returns buf as a canonical WAV file of exactly
// 44 + frames × channels × 2 bytes.
func Encode(buf *audio.Buffer) ([]byte, error) {
	h, err := headerOf(buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, HeaderSize+int(h.DataBytes))
	h.put(out)
	putSamples(out[HeaderSize:], buf, 0, buf.NumFrames())
	return out, nil
}

// EncodeTo streams the same bytes Encode would return to w.
func EncodeTo(w io.Writer, buf *audio.Buffer) (int64, error) {
	h, err := headerOf(buf)
	if err != nil {
		return 0, err
	}
	head, _ := h.MarshalBinary()
	n, err := w.Write(head)
	written := int64(n)
	if err != nil {
		return written, err
	}

	const framesPerBlock = 4096
	frames := buf.NumFrames()
	scratch := make([]byte, framesPerBlock*buf.NumChannels()*BytesPerSample)
	for start := 0; start < frames; start += framesPerBlock {
		end := min(start+framesPerBlock, frames)
		block := scratch[:(end-start)*buf.NumChannels()*BytesPerSample]
		putSamples(block, buf, start, end)
		n, err := w.Write(block)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func headerOf(buf *audio.Buffer) (Header, error) {
	if err := buf.Validate(); err != nil {
		return Header{}, err
	}
	dataBytes := uint64(buf.NumFrames()) * uint64(buf.NumChannels()) * BytesPerSample
	if dataBytes > maxDataBytes {
		return Header{}, errors.InvalidInput("buffer", fmt.Sprintf("%d data bytes exceed the WAV size limit", dataBytes))
	}
	return HeaderFor(buf.NumChannels(), buf.SampleRate, buf.NumFrames()), nil
}

// putSamples interleaves frames [start, end) into dst, frame by frame.
func putSamples(dst []byte, buf *audio.Buffer, start, end int) {
	off := 0
	for f := start; f < end; f++ {
		for _, ch := range buf.Channels {
			binary.LittleEndian.PutUint16(dst[off:], uint16(Quantize(ch[f])))
			off += BytesPerSample
		}
	}
}
