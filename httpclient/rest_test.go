package httpclient

import (
	"context"
	"net/http"
	"testing"
)

type entry struct {
	ID   string `json:"id"`
	Hari string `json:"hari"`
}

func TestGet_Typed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" || r.Header.Get("X-Trace") != "t1" {
			t.Errorf("request = %s %v", r.URL, r.Header)
		}
		w.Write([]byte(`[{"id":"j-1","hari":"SENIN"}]`))
	})

	resp, err := Get[[]entry](c, context.Background(), "/jadwal", WithQueryParam("limit", "5"), WithHeader("X-Trace", "t1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Hari != "SENIN" {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestPost_Typed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"new"}`))
	})

	resp, err := Post[entry](c, context.Background(), "/jadwal", entry{Hari: "RABU"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated || resp.Data.ID != "new" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGet_EmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	resp, err := Get[[]entry](c, context.Background(), "/x")
	if err != nil || resp.Data != nil {
		t.Errorf("resp = %+v, err = %v", resp, err)
	}
}

func TestGet_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	if _, err := Get[[]entry](c, context.Background(), "/x"); err == nil {
		t.Error("expected decode error")
	}
}

func TestGet_ErrorResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Jadwal tidak ditemukan"}`))
	})
	_, err := Get[entry](c, context.Background(), "/jadwal/x")
	e, ok := AsError(err)
	if !ok || e.ServerMessage() != "Jadwal tidak ditemukan" {
		t.Errorf("err = %v", err)
	}
}
