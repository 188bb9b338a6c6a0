package httpclient

import (
	"bytes"
	"io"
	"maps"
	"mime"
	"mime/multipart"
	"net/textproto"
	"slices"
)

const defaultPartType = "application/octet-stream"

// MultipartBody is a multipart/form-data Request.Body. Form fields are
// written first in key order, then Files in slice order. The client sets
// the boundary in Content-Type.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is one uploaded file, such as the WAV under "audio_data".
type FileField struct {
	FieldName   string
	FileName    string
	ContentType string // application/octet-stream when empty
	Data        []byte
}

// Size is the sum of the file payloads, excluding form fields and framing.
func (m *MultipartBody) Size() int {
	n := 0
	for _, f := range m.Files {
		n += len(f.Data)
	}
	return n
}

func (m *MultipartBody) encode() (io.Reader, string, error) {
	buf := new(bytes.Buffer)
	buf.Grow(m.Size() + 1024)
	w := multipart.NewWriter(buf)

	for _, k := range slices.Sorted(maps.Keys(m.Fields)) {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		if err := writeFile(w, f); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, f FileField) error {
	ct := f.ContentType
	if ct == "" {
		ct = defaultPartType
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     f.FieldName,
		"filename": f.FileName,
	}))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Data)
	return err
}
