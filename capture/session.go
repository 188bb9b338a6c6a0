package capture

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/voicecap/clock"
)

// Session is a point-in-time view of the current recording session.
type Session struct {
	ID         uuid.UUID     `json:"id"`
	State      State         `json:"state"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	ChunkCount int           `json:"chunk_count"`
	ChunkBytes int           `json:"chunk_bytes"`
	Artifact   *Artifact     `json:"artifact,omitempty"`
	Err        error         `json:"-"`
}

// Event reports a state transition, or a one-second tick while Recording
// when Tick is set.
type Event struct {
	SessionID uuid.UUID
	From, To  State
	Tick      bool
	Elapsed   time.Duration
	Err       error
}

// session is the controller's mutable record. Fields are guarded by
// Controller.mu except where noted.
type session struct {
	id         uuid.UUID
	startedAt  time.Time
	elapsed    time.Duration
	chunks     [][]byte
	chunkBytes int
	mimeType   string
	artifact   *Artifact
	err        error

	stream    Stream
	closeOnce sync.Once // guards stream.Close
	released  chan struct{}

	ticker   clock.Ticker
	stopTick chan struct{}
	readDone chan struct{}

	// finalized is closed when the stop pipeline has produced a result.
	finalized chan struct{}

	cancelOpen   context.CancelFunc
	cancelUpload context.CancelFunc
}

func newSession() *session {
	return &session{id: uuid.New(), released: make(chan struct{})}
}

func (s *session) appendChunk(b []byte) {
	if len(b) == 0 {
		return
	}
	s.chunks = append(s.chunks, b)
	s.chunkBytes += len(b)
}

func (s *session) blob() []byte {
	return bytes.Join(s.chunks, nil)
}

// release closes the stream and ends the open context, once, then closes
// released. Safe to call without Controller.mu as long as stream was
// captured under it.
func (s *session) release(stream Stream) error {
	var err error
	s.closeOnce.Do(func() {
		if stream != nil {
			err = stream.Close()
		}
		if s.cancelOpen != nil {
			s.cancelOpen()
		}
		close(s.released)
	})
	return err
}

func (s *session) snapshot(state State) Session {
	return Session{
		ID:         s.id,
		State:      state,
		StartedAt:  s.startedAt,
		Elapsed:    s.elapsed,
		ChunkCount: len(s.chunks),
		ChunkBytes: s.chunkBytes,
		Artifact:   s.artifact,
		Err:        s.err,
	}
}
