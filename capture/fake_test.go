package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/audio/decode"
)

// fakeMic counts device acquisitions and releases.
type fakeMic struct {
	mu      sync.Mutex
	opens   int
	closes  int
	err     error
	gate    chan struct{} // when set, Open blocks until closed
	hold    chan struct{} // when set, Stream.Close blocks until closed
	streams []*fakeStream
	last    Constraints
}

func (m *fakeMic) Open(ctx context.Context, c Constraints) (Stream, error) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = c
	if m.err != nil {
		return nil, m.err
	}
	m.opens++
	s := &fakeStream{mic: m, frags: make(chan []byte, 64)}
	m.streams = append(m.streams, s)
	return s, nil
}

func (m *fakeMic) counts() (opens, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens, m.closes
}

func (m *fakeMic) stream(t *testing.T) *fakeStream {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streams) == 0 {
		t.Fatal("no stream opened")
	}
	return m.streams[len(m.streams)-1]
}

type fakeStream struct {
	mic    *fakeMic
	mu     sync.Mutex
	frags  chan []byte
	closed bool
	err    error
}

func (s *fakeStream) Fragments() <-chan []byte { return s.frags }
func (s *fakeStream) MimeType() string         { return "audio/webm;codecs=opus" }

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) push(b ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, f := range b {
		s.frags <- []byte(f)
	}
}

// end simulates the device ending the stream on its own.
func (s *fakeStream) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.err = err
	s.closed = true
	close(s.frags)
}

func (s *fakeStream) Close() error {
	s.mic.mu.Lock()
	hold := s.mic.hold
	s.mic.mu.Unlock()
	if hold != nil {
		<-hold
	}
	s.mic.mu.Lock()
	s.mic.closes++
	s.mic.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frags)
	}
	return nil
}

// echoDecoder turns each blob byte into one sample and records its input.
type echoDecoder struct {
	mu    sync.Mutex
	blobs []string
	mimes []string
	err   error
	gate  chan struct{} // when set, Decode blocks until closed
}

func (d *echoDecoder) Decode(_ context.Context, blob []byte, mimeType string) (*audio.Buffer, error) {
	if d.gate != nil {
		<-d.gate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blobs = append(d.blobs, string(blob))
	d.mimes = append(d.mimes, mimeType)
	if d.err != nil {
		return nil, d.err
	}
	buf := audio.NewBuffer(100, 1, len(blob))
	for i := range blob {
		buf.Channels[0][i] = 0.5
	}
	return buf, nil
}

func (d *echoDecoder) lastBlob() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.blobs) == 0 {
		return ""
	}
	return d.blobs[len(d.blobs)-1]
}

var _ decode.Decoder = (*echoDecoder)(nil)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	waitFor(t, "state "+want.String(), func() bool { return c.State() == want })
}
