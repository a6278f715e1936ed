package upstream

import (
	"fmt"
	"io"
	"net/http"
)

// Transport adapts an Executor to http.RoundTripper so clients built by
// other libraries (the oauth2 token exchange, for one) go through the same
// retry and rate-limit handling.
type Transport struct {
	Executor *Executor
	Policy   Policy
	Route    string
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil {
		data, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = data
	}

	route := t.Route
	if route == "" {
		route = r.Method + " " + r.URL.Path
	}

	return t.Executor.Execute(r.Context(), Request{
		Route:  route,
		Method: r.Method,
		URL:    r.URL.String(),
		Header: r.Header.Clone(),
		Body:   body,
	}, t.Policy)
}
