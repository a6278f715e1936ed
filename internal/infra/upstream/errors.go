package upstream

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxForwardBody bounds bodies copied into a StatusError.
const maxForwardBody = 1 << 20

// RelayError is returned once the retry budget is exhausted. It carries the
// last observed status and body prefix so callers can diagnose the failure.
type RelayError struct {
	Route    string
	Status   int // 0 when the last attempt failed before a response
	Body     string
	Attempts int
	Err      error
}

func (e *RelayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream returned %d after %d attempts: %s",
			e.Route, e.Status, e.Attempts, e.Body)
	}
	return fmt.Sprintf("%s: upstream unreachable after %d attempts: %v", e.Route, e.Attempts, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx upstream response that is forwarded to the caller
// verbatim rather than treated as an internal failure.
type StatusError struct {
	Status      int
	ContentType string
	Body        []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// NewStatusError consumes and closes resp.Body.
func NewStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxForwardBody))
	return &StatusError{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
}
