package wav

import (
	"encoding/binary"
	"fmt"
)

// Canonical layout constants.
const (
	HeaderSize     = 44
	FormatPCM      = 1
	BitsPerSample  = 16
	BytesPerSample = BitsPerSample / 8
	fmtChunkSize   = 16
	MimeType       = "audio/wav"
)

// Header describes a canonical 16-bit linear PCM WAV file.
type Header struct {
	Channels   uint16
	SampleRate uint32
	DataBytes  uint32
}

// HeaderFor returns the header of an encoding of frames sample frames.
func HeaderFor(channels, sampleRate, frames int) Header {
	return Header{
		Channels:   uint16(channels),
		SampleRate: uint32(sampleRate),
		DataBytes:  uint32(frames * channels * BytesPerSample),
	}
}

// ByteRate is sampleRate × channels × 2.
func (h Header) ByteRate() uint32 {
	return h.SampleRate * uint32(h.Channels) * BytesPerSample
}

// BlockAlign is channels × 2.
func (h Header) BlockAlign() uint16 {
	return h.Channels * BytesPerSample
}

// Frames returns the number of sample frames declared by DataBytes.
func (h Header) Frames() int {
	if h.Channels == 0 {
		return 0
	}
	return int(h.DataBytes) / int(h.BlockAlign())
}

// MarshalBinary returns the 44-byte header.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	h.put(b)
	return b, nil
}

func (h Header) put(b []byte) {
	le := binary.LittleEndian
	copy(b[0:4], "RIFF")
	le.PutUint32(b[4:8], 36+h.DataBytes)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	le.PutUint32(b[16:20], fmtChunkSize)
	le.PutUint16(b[20:22], FormatPCM)
	le.PutUint16(b[22:24], h.Channels)
	le.PutUint32(b[24:28], h.SampleRate)
	le.PutUint32(b[28:32], h.ByteRate())
	le.PutUint16(b[32:34], h.BlockAlign())
	le.PutUint16(b[34:36], BitsPerSample)
	copy(b[36:40], "data")
	le.PutUint32(b[40:44], h.DataBytes)
}

// parseContainer walks the RIFF chunks of data and returns the header and the
// sample bytes. Chunks other than "fmt " and "data" are skipped.
func parseContainer(data []byte) (Header, []byte, error) {
	le := binary.LittleEndian
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Header{}, nil, fmt.Errorf("wav: not a RIFF/WAVE file")
	}

	var (
		h       Header
		haveFmt bool
		samples []byte
	)
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(le.Uint32(data[off+4 : off+8]))
		body := data[off+8:]
		if size > len(body) {
			if id != "data" {
				return Header{}, nil, fmt.Errorf("wav: chunk %q truncated", id)
			}
			size = len(body)
		}
		body = body[:size]

		switch id {
		case "fmt ":
			if size < fmtChunkSize {
				return Header{}, nil, fmt.Errorf("wav: fmt chunk too small (%d bytes)", size)
			}
			if format := le.Uint16(body[0:2]); format != FormatPCM {
				return Header{}, nil, fmt.Errorf("wav: unsupported audio format %d", format)
			}
			if bits := le.Uint16(body[14:16]); bits != BitsPerSample {
				return Header{}, nil, fmt.Errorf("wav: unsupported bits per sample %d", bits)
			}
			h.Channels = le.Uint16(body[2:4])
			h.SampleRate = le.Uint32(body[4:8])
			if h.Channels == 0 || h.SampleRate == 0 {
				return Header{}, nil, fmt.Errorf("wav: invalid channel count or sample rate")
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return Header{}, nil, fmt.Errorf("wav: data chunk before fmt chunk")
			}
			frames := size / int(h.BlockAlign())
			samples = body[:frames*int(h.BlockAlign())]
			h.DataBytes = uint32(len(samples))
			return h, samples, nil
		}
		// chunks are word aligned
		off += 8 + size + size%2
	}
	if !haveFmt {
		return Header{}, nil, fmt.Errorf("wav: missing fmt chunk")
	}
	return Header{}, nil, fmt.Errorf("wav: missing data chunk")
}
