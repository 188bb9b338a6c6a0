package remote

import (
	"context"
	"sync"

	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/schedule"
)

// Source reads schedule entries from the API.
type Source struct {
	Client *Client
}

var _ schedule.Source = Source{}

// Entries implements schedule.Source.
func (s Source) Entries(ctx context.Context) ([]schedule.Entry, error) {
	return s.Client.ListSchedules(ctx)
}

// Trigger starts and stops recordings through the API.
type Trigger struct {
	Client *Client
}

var _ schedule.Trigger = Trigger{}

// Start implements schedule.Trigger.
func (t Trigger) Start(ctx context.Context, f schedule.Firing) error {
	_, err := t.Client.StartRecording(ctx, f.Entry.ID)
	return err
}

// Stop implements schedule.Trigger.
func (t Trigger) Stop(ctx context.Context, f schedule.Firing) error {
	_, err := t.Client.StopRecording(ctx, f.Entry.ID)
	return err
}

// VoiceSampleUploader uploads confirmed artifacts as one lecturer's sample.
type VoiceSampleUploader struct {
	client     *Client
	lecturerID string

	mu   sync.Mutex
	last *UploadResult
}

var _ capture.Uploader = (*VoiceSampleUploader)(nil)

// NewVoiceSampleUploader binds uploads to lecturerID.
func NewVoiceSampleUploader(c *Client, lecturerID string) *VoiceSampleUploader {
	return &VoiceSampleUploader{client: c, lecturerID: lecturerID}
}

// Upload implements capture.Uploader.
func (u *VoiceSampleUploader) Upload(ctx context.Context, a *capture.Artifact) error {
	res, err := u.client.UploadVoiceSample(ctx, u.lecturerID, a)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.last = res
	u.mu.Unlock()
	return nil
}

// Last returns the result of the last successful upload, or nil.
func (u *VoiceSampleUploader) Last() *UploadResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}
