package httpclient

import "context"

// Doer is the single capability virtual users need from an HTTP client:
// execute a request, get a response. The concrete Client implements it;
// tests substitute fakes.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}
