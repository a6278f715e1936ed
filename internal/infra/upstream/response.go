package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// IsSuccess reports whether the status is 2xx.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// DecodeJSON decodes a 2xx response into v and closes the body.
// Any other status is returned as a *StatusError.
func DecodeJSON(resp *http.Response, v any) error {
	if !IsSuccess(resp.StatusCode) {
		return NewStatusError(resp)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Discard drains and closes a response body so the connection can be reused.
func Discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxForwardBody))
	_ = resp.Body.Close()
}
