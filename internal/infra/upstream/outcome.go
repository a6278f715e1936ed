package upstream

import (
	"net/http"
	"time"
)

// OutcomeKind is the executor's verdict on one attempt.
type OutcomeKind int

const (
	// OutcomeSuccess means the response is handed to the caller as-is.
	// This includes 4xx other than 429.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRetryable covers 429, 5xx and network failures.
	OutcomeRetryable
	// OutcomeTerminal covers failures that must not be retried,
	// such as a malformed request or a cancelled context.
	OutcomeTerminal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one attempt.
type Outcome struct {
	Kind     OutcomeKind
	Response *http.Response // set for OutcomeSuccess only
	Status   int            // 0 for network failures
	Body     string         // bounded prefix, retryable responses only
	Reason   string
	Err      error

	RetryAfter time.Duration
	HasHint    bool
}

// IsRetryableStatus reports whether an HTTP status should be retried.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
