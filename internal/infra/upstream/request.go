package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Request is an outbound call. It is treated as immutable: every attempt
// builds a fresh *http.Request from it, so the body can be replayed.
type Request struct {
	// Route is a low-cardinality label used for logs and metrics,
	// e.g. "GET /channels/{id}".
	Route  string
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// NewRequest creates a Request with an empty header set.
func NewRequest(route, method, url string, body []byte) Request {
	return Request{
		Route:  route,
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}
}

// NewJSONRequest marshals payload as the request body.
func NewJSONRequest(route, method, url string, payload any) (Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("marshal request: %w", err)
	}
	return NewRequest(route, method, url, data).WithHeader("Content-Type", "application/json"), nil
}

// WithHeader returns a copy of r with the header set.
func (r Request) WithHeader(key, value string) Request {
	h := r.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set(key, value)
	r.Header = h
	return r
}

func (r Request) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}
