package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/errors"
	"github.com/kbukum/voicecap/schedule"
)

const scheduleJSON = `[
	{"id":"j-1","nama_matkul":"Basis Data","dosen_id":"d-1","dosen":{"id":"d-1","nama":"Sari","gelar":"M.T."},
	 "hari":"SENIN","waktu_mulai":"08:00","waktu_selesai":"09:40","ruangan":"R1","status":"aktif","sedang_rekam":false},
	{"id":"j-2","nama_matkul":"Jaringan","dosen_id":"d-2",
	 "hari":"RABU","waktu_mulai":"13:00","waktu_selesai":"14:40","status":"terjadwal","sedang_rekam":false}
]`

const entryJSON = `{"id":"j-1","nama_matkul":"Basis Data","dosen_id":"d-1",
	"hari":"SENIN","waktu_mulai":"08:00","waktu_selesai":"09:40","status":"aktif","sedang_rekam":false}`

// fakeAPI mimics the monitoring backend's routes.
type fakeAPI struct {
	mu        sync.Mutex
	started   []string
	stopped   []string
	uploads   []upload
	failures  int // remaining 500 responses for /jadwal
	listCalls int
}

type upload struct {
	lecturer string
	fields   map[string]string
	filename string
	mime     string
	data     []byte
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api := &fakeAPI{}
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/jadwal", func(c *gin.Context) {
		api.mu.Lock()
		api.listCalls++
		fail := api.failures > 0
		if fail {
			api.failures--
		}
		api.mu.Unlock()
		if fail {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database is locked"})
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(scheduleJSON))
	})
	v1.GET("/jadwal/sedang-rekam", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(`[]`))
	})
	v1.GET("/jadwal/:id", func(c *gin.Context) {
		if c.Param("id") != "j-1" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Jadwal tidak ditemukan"})
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(entryJSON))
	})
	v1.GET("/rekaman/mulai/:jadwal_id", func(c *gin.Context) {
		api.mu.Lock()
		api.started = append(api.started, c.Param("jadwal_id"))
		api.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"message": "Rekaman dimulai"})
	})
	v1.GET("/rekaman/hentikan/:jadwal_id", func(c *gin.Context) {
		api.mu.Lock()
		api.stopped = append(api.stopped, c.Param("jadwal_id"))
		api.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"message": "Rekaman dihentikan"})
	})
	v1.POST("/dosen/:id/rekam-suara", func(c *gin.Context) {
		fh, err := c.FormFile("audio_data")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File audio wajib diupload"})
			return
		}
		if c.Param("id") == "d-full" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File terlalu besar. Maksimal 10MB"})
			return
		}
		f, _ := fh.Open()
		data, _ := io.ReadAll(f)
		f.Close()
		u := upload{
			lecturer: c.Param("id"),
			fields: map[string]string{
				"dosen_id":         c.PostForm("dosen_id"),
				"session_id":       c.PostForm("session_id"),
				"duration_seconds": c.PostForm("duration_seconds"),
			},
			filename: fh.Filename,
			mime:     fh.Header.Get("Content-Type"),
			data:     data,
		}
		api.mu.Lock()
		api.uploads = append(api.uploads, u)
		api.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{
			"message":  "Sample suara dosen berhasil disimpan",
			"path":     "uploads/audio/" + fh.Filename,
			"dosen_id": c.Param("id"),
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL + "/api/v1", RetryAttempts: 2, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return api, client
}

func artifact(size int) *capture.Artifact {
	return &capture.Artifact{
		SessionID: uuid.MustParse("6f1c1b4e-8d0a-4c36-9b59-0d8a4bb1e001"),
		Data:      make([]byte, size),
		MimeType:  "audio/wav",
		Duration:  62500 * time.Millisecond,
	}
}

func TestListSchedules(t *testing.T) {
	_, c := newFakeAPI(t)

	entries, err := c.ListSchedules(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.ID != "j-1" || e.Day != schedule.Senin || e.Start != schedule.MustTimeOfDay("08:00") || !e.Active() {
		t.Errorf("entry = %+v", e)
	}
	if e.Lecturer == nil || e.Lecturer.Name != "Sari" {
		t.Errorf("lecturer = %+v", e.Lecturer)
	}
	if entries[1].Status != schedule.StatusScheduled {
		t.Errorf("status = %q", entries[1].Status)
	}
}

func TestListActiveToday(t *testing.T) {
	_, c := newFakeAPI(t)
	entries, err := c.ListActiveToday(context.Background())
	if err != nil || len(entries) != 0 {
		t.Errorf("entries = %v, err = %v", entries, err)
	}
}

func TestGetSchedule(t *testing.T) {
	_, c := newFakeAPI(t)

	e, err := c.GetSchedule(context.Background(), "j-1")
	if err != nil || e.Course != "Basis Data" {
		t.Fatalf("entry = %+v, err = %v", e, err)
	}

	_, err = c.GetSchedule(context.Background(), "missing")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Message != "Jadwal tidak ditemukan" {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestTriggers(t *testing.T) {
	api, c := newFakeAPI(t)
	ctx := context.Background()

	msg, err := c.StartRecording(ctx, "j-1")
	if err != nil || msg.Message != "Rekaman dimulai" {
		t.Fatalf("start = %+v, %v", msg, err)
	}
	msg, err = c.StopRecording(ctx, "j-1")
	if err != nil || msg.Message != "Rekaman dihentikan" {
		t.Fatalf("stop = %+v, %v", msg, err)
	}
	if len(api.started) != 1 || len(api.stopped) != 1 || api.started[0] != "j-1" {
		t.Errorf("calls = %v / %v", api.started, api.stopped)
	}
}

func TestServerErrorRetriedThenSurfaced(t *testing.T) {
	api, c := newFakeAPI(t)
	api.failures = 5

	_, err := c.ListSchedules(context.Background())
	if !errors.HasCode(err, errors.ErrCodeExternalService) {
		t.Fatalf("err = %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Message != "database is locked" || !appErr.Retryable {
		t.Errorf("appErr = %+v", appErr)
	}
	if api.listCalls != 2 {
		t.Errorf("list calls = %d, want 2 attempts", api.listCalls)
	}
}

func TestServerErrorRecovers(t *testing.T) {
	api, c := newFakeAPI(t)
	api.failures = 1

	entries, err := c.ListSchedules(context.Background())
	if err != nil || len(entries) != 2 {
		t.Fatalf("entries = %d, err = %v", len(entries), err)
	}
}

func TestConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: base, RetryAttempts: 1})
	_, err := c.ListSchedules(context.Background())
	if !errors.HasCode(err, errors.ErrCodeConnectionFailed) || !errors.IsRetryable(err) {
		t.Errorf("err = %v", err)
	}

	_, err = c.UploadVoiceSample(context.Background(), "d-1", artifact(10))
	if !errors.HasCode(err, errors.ErrCodeUploadFailed) {
		t.Errorf("upload err = %v", err)
	}
}

func TestUploadVoiceSample(t *testing.T) {
	api, c := newFakeAPI(t)
	art := artifact(1024)
	art.Data[0] = 'R'

	res, err := c.UploadVoiceSample(context.Background(), "d-1", art)
	if err != nil {
		t.Fatal(err)
	}
	if res.LecturerID != "d-1" || res.Path != "uploads/audio/rekaman.wav" {
		t.Errorf("result = %+v", res)
	}

	if len(api.uploads) != 1 {
		t.Fatalf("uploads = %d", len(api.uploads))
	}
	u := api.uploads[0]
	if u.lecturer != "d-1" || u.filename != AudioFileName || u.mime != AudioMimeType {
		t.Errorf("upload = %+v", u)
	}
	if len(u.data) != 1024 || u.data[0] != 'R' {
		t.Errorf("data = %d bytes", len(u.data))
	}
	want := map[string]string{
		"dosen_id":         "d-1",
		"session_id":       "6f1c1b4e-8d0a-4c36-9b59-0d8a4bb1e001",
		"duration_seconds": "62.5",
	}
	for k, v := range want {
		if u.fields[k] != v {
			t.Errorf("%s = %q, want %q", k, u.fields[k], v)
		}
	}
}

func TestUploadVoiceSample_Rejected(t *testing.T) {
	_, c := newFakeAPI(t)

	_, err := c.UploadVoiceSample(context.Background(), "d-full", artifact(10))
	if !errors.HasCode(err, errors.ErrCodeUploadFailed) {
		t.Fatalf("err = %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Message != "File terlalu besar. Maksimal 10MB" || appErr.Details["status"] != http.StatusBadRequest {
		t.Errorf("appErr = %+v", appErr)
	}
}

func TestUploadVoiceSample_InvalidInput(t *testing.T) {
	api, c := newFakeAPI(t)
	tests := []struct {
		name     string
		lecturer string
		art      *capture.Artifact
	}{
		{"no lecturer", "", artifact(10)},
		{"nil artifact", "d-1", nil},
		{"empty", "d-1", artifact(0)},
		{"too large", "d-1", artifact(MaxUploadBytes + 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.UploadVoiceSample(context.Background(), tt.lecturer, tt.art)
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
	if len(api.uploads) != 0 {
		t.Errorf("uploads = %d, nothing should reach the API", len(api.uploads))
	}
}
