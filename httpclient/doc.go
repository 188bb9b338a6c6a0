// Package httpclient is the HTTP transport for the monitoring API: a
// configurable client with retry, a circuit breaker, typed JSON helpers,
// multipart uploads and status-code classification that keeps the server's
// {"error": "..."} message. Every request runs in an http.request span.
//
//	c, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://localhost:8080/api/v1",
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//	resp, err := httpclient.Get[[]schedule.Entry](c, ctx, "/jadwal")
package httpclient
