package wav

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/errors"
)

func sampleAt(t *testing.T, wav []byte, index int) int16 {
	t.Helper()
	off := HeaderSize + index*BytesPerSample
	return int16(binary.LittleEndian.Uint16(wav[off : off+2]))
}

func TestEncode_HeaderFields(t *testing.T) {
	buf := audio.NewBuffer(44100, 2, 10)
	wav, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	le := binary.LittleEndian
	dataBytes := uint32(10 * 2 * 2)

	if string(wav[0:4]) != "RIFF" {
		t.Errorf("expected RIFF marker, got %q", wav[0:4])
	}
	if got := le.Uint32(wav[4:8]); got != 36+dataBytes {
		t.Errorf("RIFF size = %d, want %d", got, 36+dataBytes)
	}
	if string(wav[8:12]) != "WAVE" {
		t.Errorf("expected WAVE marker, got %q", wav[8:12])
	}
	if string(wav[12:16]) != "fmt " {
		t.Errorf("expected fmt marker, got %q", wav[12:16])
	}
	checks := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"fmt size", le.Uint32(wav[16:20]), 16},
		{"audio format", uint32(le.Uint16(wav[20:22])), 1},
		{"channels", uint32(le.Uint16(wav[22:24])), 2},
		{"sample rate", le.Uint32(wav[24:28]), 44100},
		{"byte rate", le.Uint32(wav[28:32]), 44100 * 2 * 2},
		{"block align", uint32(le.Uint16(wav[32:34])), 4},
		{"bits per sample", uint32(le.Uint16(wav[34:36])), 16},
		{"data size", le.Uint32(wav[40:44]), dataBytes},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if string(wav[36:40]) != "data" {
		t.Errorf("expected data marker, got %q", wav[36:40])
	}
}

func TestEncode_Size(t *testing.T) {
	tests := []struct {
		channels, frames int
	}{
		{1, 0},
		{1, 1},
		{1, 44100},
		{2, 3},
		{6, 1000},
	}
	for _, tt := range tests {
		wav, err := Encode(audio.NewBuffer(16000, tt.channels, tt.frames))
		if err != nil {
			t.Fatalf("Encode(%d ch, %d frames) failed: %v", tt.channels, tt.frames, err)
		}
		want := 44 + tt.frames*tt.channels*2
		if len(wav) != want || Size(tt.channels, tt.frames) != want {
			t.Errorf("%d ch, %d frames: len = %d, want %d", tt.channels, tt.frames, len(wav), want)
		}
	}
}

func TestQuantize_Boundaries(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{1.0, 32767},
		{-1.0, -32768},
		{0.0, 0},
		{1.5, 32767},
		{-7, -32768},
		{0.5, 16383},
		{-0.5, -16384},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncode_ClampMatchesFullScale(t *testing.T) {
	over := &audio.Buffer{SampleRate: 8000, Channels: [][]float32{{1.5, -3}}}
	full := &audio.Buffer{SampleRate: 8000, Channels: [][]float32{{1.0, -1.0}}}
	a, _ := Encode(over)
	b, _ := Encode(full)
	if !bytes.Equal(a, b) {
		t.Error("out-of-range samples should encode identically to full scale")
	}
}

func TestEncode_InterleavesFrameMajor(t *testing.T) {
	buf := &audio.Buffer{SampleRate: 8000, Channels: [][]float32{
		{1.0, 0.0},
		{-1.0, 0.5},
	}}
	wav, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []int16{32767, -32768, 0, 16383}
	for i, w := range want {
		if got := sampleAt(t, wav, i); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestEncodeTo_MatchesEncode(t *testing.T) {
	buf := audio.NewBuffer(44100, 2, 10000)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = float32(i%200)/100 - 1
		buf.Channels[1][i] = -buf.Channels[0][i]
	}
	want, _ := Encode(buf)

	var out bytes.Buffer
	n, err := EncodeTo(&out, buf)
	if err != nil {
		t.Fatalf("EncodeTo failed: %v", err)
	}
	if n != int64(len(want)) {
		t.Errorf("EncodeTo wrote %d bytes, want %d", n, len(want))
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Error("EncodeTo output differs from Encode")
	}
}

func TestEncode_InvalidBuffer(t *testing.T) {
	tests := []struct {
		name string
		buf  *audio.Buffer
	}{
		{"nil", nil},
		{"no channels", &audio.Buffer{SampleRate: 44100}},
		{"zero rate", &audio.Buffer{Channels: [][]float32{{0}}}},
		{"ragged", &audio.Buffer{SampleRate: 44100, Channels: [][]float32{{0, 0}, {0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.buf)
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}
