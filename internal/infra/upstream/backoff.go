package upstream

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxRetryAfter caps any server-supplied wait.
const MaxRetryAfter = 60 * time.Second

// ComputeWait returns how long to wait before the attempt after `attempt`
// (0-based). A server hint wins and is clamped to [0, MaxRetryAfter];
// otherwise the wait is base * 2^attempt.
func ComputeWait(attempt int, base, hint time.Duration, hasHint bool) time.Duration {
	if hasHint {
		return clampRetryAfter(hint)
	}
	if attempt < 0 {
		attempt = 0
	}
	d := float64(base) * math.Pow(2, float64(attempt))
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// ParseRetryAfter parses a Retry-After header value. Numeric values are
// seconds (fractions allowed); otherwise an HTTP-date is turned into the
// time remaining from now. Unparseable values report ok=false.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, false
		}
		ms := math.Round(secs * 1000)
		if ms > float64(MaxRetryAfter/time.Millisecond) {
			return MaxRetryAfter, true
		}
		return clampRetryAfter(time.Duration(ms) * time.Millisecond), true
	}

	if at, err := http.ParseTime(value); err == nil {
		return clampRetryAfter(at.Sub(now)), true
	}

	return 0, false
}

func clampRetryAfter(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxRetryAfter {
		return MaxRetryAfter
	}
	return d
}
