package httpclient

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response holds a fully-read HTTP response. The body is drained once by
// the client and cached, so accessors can be called any number of times and
// the connection goes back to the pool immediately.
type Response struct {
	statusCode int
	status     string
	header     http.Header
	body       []byte
	duration   time.Duration
	ttfb       time.Duration
}

// StatusCode returns the HTTP status code (200, 404, ...).
func (r *Response) StatusCode() int {
	return r.statusCode
}

// Status returns the HTTP status line ("200 OK").
func (r *Response) Status() string {
	return r.status
}

// Header returns the response headers.
func (r *Response) Header() http.Header {
	return r.header
}

// Body returns the cached response body.
func (r *Response) Body() []byte {
	return r.body
}

// BodyString returns the cached response body as a string.
func (r *Response) BodyString() string {
	return string(r.body)
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.body, v)
}

// Duration returns the end-to-end request time, including reading the body.
func (r *Response) Duration() time.Duration {
	return r.duration
}

// TimeToFirstByte returns the time until the first response byte arrived.
func (r *Response) TimeToFirstByte() time.Duration {
	return r.ttfb
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// IsClientError reports whether the status code is in the 4xx range.
func (r *Response) IsClientError() bool {
	return r.statusCode >= 400 && r.statusCode < 500
}

// IsServerError reports whether the status code is in the 5xx range.
func (r *Response) IsServerError() bool {
	return r.statusCode >= 500 && r.statusCode < 600
}

// IsError reports whether the status code indicates a 4xx or 5xx error.
func (r *Response) IsError() bool {
	return r.IsClientError() || r.IsServerError()
}
