package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TypedResponse is a Response whose JSON body has been decoded into Data.
// Data keeps its zero value for empty bodies such as 204.
type TypedResponse[T any] struct {
	StatusCode int
	Headers    map[string]string
	Data       T
}

// RequestOption adjusts one request built by Get or Post.
type RequestOption func(*Request)

func WithHeader(key, value string) RequestOption {
	return func(r *Request) { r.Headers = put(r.Headers, key, value) }
}

func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) { r.Query = put(r.Query, key, value) }
}

func put(m map[string]string, k, v string) map[string]string {
	if m == nil {
		m = make(map[string]string, 1)
	}
	m[k] = v
	return m
}

// Get decodes the JSON body of GET path into T.
func Get[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return send[T](c, ctx, Request{Method: http.MethodGet, Path: path}, opts)
}

// Post sends body (JSON, or multipart when it is a *MultipartBody) and
// decodes the JSON reply into T.
func Post[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return send[T](c, ctx, Request{Method: http.MethodPost, Path: path, Body: body}, opts)
}

func send[T any](c *Client, ctx context.Context, req Request, opts []RequestOption) (*TypedResponse[T], error) {
	for _, apply := range opts {
		apply(&req)
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &TypedResponse[T]{StatusCode: resp.StatusCode, Headers: resp.Headers}
	if len(resp.Body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out.Data); err != nil {
		return nil, fmt.Errorf("httpclient: decode %s %s: %w", req.Method, req.Path, err)
	}
	return out, nil
}
