package httpclient

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client executes Requests against a target. It is safe for concurrent use
// by many virtual users; connections are pooled by the underlying transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

var _ Doer = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client with the given options.
//
// Example:
//
//	client := httpclient.NewClient(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithTimeout(10*time.Second),
//	    httpclient.WithDefaultHeader("Authorization", "Bearer token"),
//	)
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithBaseURL sets the base URL prepended to each request's path.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout. The default is 30 seconds.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithDefaultHeader adds a header sent with every request. Headers set on
// an individual request override these.
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHTTPClient substitutes a custom *http.Client for advanced transport
// or TLS configuration.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxIdleConnsPerHost raises the idle connection cap per host. Load
// runs hammer a single host, so the net/http default of 2 idle connections
// forces constant reconnects at any real concurrency.
func WithMaxIdleConnsPerHost(n int) ClientOption {
	return func(c *Client) {
		t := c.transport()
		t.MaxIdleConnsPerHost = n
		if t.MaxIdleConns < n {
			t.MaxIdleConns = n
		}
	}
}

// WithFollowRedirects controls whether 3xx responses are followed.
// They are by default.
func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		if follow {
			c.httpClient.CheckRedirect = nil
			return
		}
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// WARNING: only for testing against self-signed targets.
func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) {
		c.transport().TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
}

// transport returns the client's *http.Transport, cloning the default one
// on first use so options can compose.
func (c *Client) transport() *http.Transport {
	if t, ok := c.httpClient.Transport.(*http.Transport); ok && t != nil {
		return t
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	c.httpClient.Transport = t
	return t
}

// Do executes the request and returns the response with its body fully
// read. The request's own base URL wins over the client's when both are
// set.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	base := req.BaseURL
	if base == "" {
		base = c.baseURL
	}

	httpReq, err := req.build(base)
	if err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	start := time.Now()
	var ttfb time.Duration
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			ttfb = time.Since(start)
		},
	}
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(ctx, trace))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if err != nil {
		return nil, err
	}

	return &Response{
		statusCode: httpResp.StatusCode,
		status:     httpResp.Status,
		header:     httpResp.Header,
		body:       body,
		duration:   time.Since(start),
		ttfb:       ttfb,
	}, nil
}

// NewResponse fabricates a response. Intended for Doer fakes in tests.
func NewResponse(statusCode int, header http.Header, body []byte) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		statusCode: statusCode,
		status:     http.StatusText(statusCode),
		header:     header,
		body:       body,
	}
}
