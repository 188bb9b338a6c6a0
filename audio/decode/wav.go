package decode

import (
	"context"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/audio/wav"
)

// WAVTypes are the MIME types handled by WAV.
var WAVTypes = []string{"audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave"}

// WAV decodes blobs that are already 16-bit PCM WAV.
type WAV struct{}

// Decode implements Decoder.
func (WAV) Decode(ctx context.Context, blob []byte, _ string) (*audio.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wav.Decode(blob)
}
