package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes an HTTP request with a fluent builder pattern.
// Use NewRequest to create one and chain calls to configure it.
//
// Once configured, a Request is safe for concurrent execution by many
// goroutines as long as its Body is not a bare io.Reader (readers are
// consumed on first use).
type Request struct {
	Method      string
	Path        string
	BaseURL     string
	QueryParams url.Values
	Headers     map[string]string
	Body        interface{}
	Name        string
}

// NewRequest creates a request with the given method and path.
//
// Example:
//
//	req := httpclient.NewRequest("GET", "/users").
//	    WithQueryParam("limit", "10").
//	    WithHeader("Accept", "application/json")
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      strings.ToUpper(method),
		Path:        path,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// WithBaseURL pins the request to a specific base URL, overriding the
// client's default.
func (r *Request) WithBaseURL(baseURL string) *Request {
	r.BaseURL = baseURL
	return r
}

// WithHeader adds a header to the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithHeaders adds multiple headers to the request.
func (r *Request) WithHeaders(headers map[string]string) *Request {
	for key, value := range headers {
		r.Headers[key] = value
	}
	return r
}

// WithQueryParam adds a query parameter. Call repeatedly to send multiple
// values for the same key.
func (r *Request) WithQueryParam(key, value string) *Request {
	r.QueryParams.Add(key, value)
	return r
}

// WithQueryParams adds multiple query parameters.
func (r *Request) WithQueryParams(params map[string]string) *Request {
	for key, value := range params {
		r.QueryParams.Add(key, value)
	}
	return r
}

// WithBody sets the request body. Strings, byte slices and io.Readers are
// sent as-is; anything else is marshaled as JSON at build time.
func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

// WithJSON sets the body to the JSON encoding of v and sets Content-Type.
func (r *Request) WithJSON(v interface{}) *Request {
	r.Body = v
	r.Headers["Content-Type"] = "application/json"
	return r
}

// WithName sets the label under which this request is aggregated in metrics
// and reports.
func (r *Request) WithName(name string) *Request {
	r.Name = name
	return r
}

// Label returns the metrics label: the explicit name if one was set,
// otherwise "METHOD path".
func (r *Request) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Method + " " + r.Path
}

// Build constructs the http.Request. Called by Client.Do; exposed for
// advanced use.
func (r *Request) Build() (*http.Request, error) {
	return r.build(r.BaseURL)
}

func (r *Request) build(baseURL string) (*http.Request, error) {
	reqURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	if reqURL.Path == "" {
		reqURL.Path = r.Path
	} else {
		reqURL.Path = strings.TrimRight(reqURL.Path, "/") + "/" + strings.TrimLeft(r.Path, "/")
	}

	query := reqURL.Query()
	for key, values := range r.QueryParams {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	reqURL.RawQuery = query.Encode()

	// build must not mutate the Request: one Request may be executed
	// concurrently by many virtual users.
	var bodyReader io.Reader
	var contentType string
	if r.Body != nil {
		switch body := r.Body.(type) {
		case string:
			bodyReader = strings.NewReader(body)
		case []byte:
			bodyReader = bytes.NewReader(body)
		case io.Reader:
			bodyReader = body
		default:
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			bodyReader = bytes.NewReader(jsonBody)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequest(r.Method, reqURL.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}
