package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request is one call against the remote API.
type Request struct {
	Method string
	// Path is joined to BaseURL unless it is already absolute.
	Path string
	// Headers override the client defaults.
	Headers map[string]string
	Query   map[string]string
	// Body is an io.Reader, []byte, string or *MultipartBody. Anything else
	// is sent as JSON.
	Body any
}

// Response carries the status, the first value of each header and the full body.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode/100 == 2
}

func (c *Client) resolve(path string) string {
	if c.config.BaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// buildRequest layers headers as client defaults, then request headers,
// then Accept and the body's Content-Type where still unset.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req.Path), body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := hr.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		hr.URL.RawQuery = q.Encode()
	}
	for _, hs := range []map[string]string{c.config.Headers, req.Headers} {
		for k, v := range hs {
			hr.Header.Set(k, v)
		}
	}
	setDefault(hr.Header, "Accept", "application/json")
	if body != nil && contentType != "" {
		setDefault(hr.Header, "Content-Type", contentType)
	}
	return hr, nil
}

func setDefault(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		return v.encode()
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func firstValues(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
