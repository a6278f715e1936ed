package upstream

import (
	"sync"
	"time"

	"github.com/afraznein/KTPDiscordRelay/internal/core/clock"
)

// Status is the health of the upstream API as seen by the relay.
type Status string

const (
	StatusHealthy   Status = "healthy"   // responding normally
	StatusDegraded  Status = "degraded"  // slow or returning 5xx
	StatusThrottled Status = "throttled" // inside a Retry-After window
)

// MonitorStats is a snapshot of upstream behaviour.
type MonitorStats struct {
	Status              Status        `json:"status"`
	AverageLatency      time.Duration `json:"average_latency"`
	RequestsLastHour    int           `json:"requests_last_hour"`
	ThrottleCount       int           `json:"throttle_count"`
	ServerErrorCount    int           `json:"server_error_count"`
	NetworkErrorCount   int           `json:"network_error_count"`
	LastThrottleAt      time.Time     `json:"last_throttle_at,omitzero"`
	LastRetryAfter      time.Duration `json:"last_retry_after"`
	RetryAfterRemaining time.Duration `json:"retry_after_remaining"`
}

// Monitor tracks latency, throttling and failures of upstream attempts.
type Monitor struct {
	mu    sync.RWMutex
	clock clock.Clock

	recentLatencies  []time.Duration
	maxLatencyWindow int

	throttleCount     int
	serverErrorCount  int
	networkErrorCount int
	lastThrottleTime  time.Time
	lastServerError   time.Time
	retryAfter        time.Duration

	requestTimestamps []time.Time
	windowDuration    time.Duration

	slowResponseThreshold time.Duration
	errorGrace            time.Duration
}

// NewMonitor creates a monitor with default thresholds.
func NewMonitor(c clock.Clock) *Monitor {
	if c == nil {
		c = clock.System{}
	}
	return &Monitor{
		clock:                 c,
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		windowDuration:        time.Hour,
		slowResponseThreshold: 3 * time.Second,
		errorGrace:            time.Minute,
	}
}

// RecordRequest records a completed attempt with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.requestTimestamps = append(m.requestTimestamps, now)
	cutoff := now.Add(-m.windowDuration)
	i := 0
	for i < len(m.requestTimestamps) && !m.requestTimestamps[i].After(cutoff) {
		i++
	}
	m.requestTimestamps = m.requestTimestamps[i:]
}

// RecordThrottle records a 429 and the wait the server asked for.
func (m *Monitor) RecordThrottle(retryAfter time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.throttleCount++
	m.lastThrottleTime = m.clock.Now()
	m.retryAfter = retryAfter
}

// RecordServerError records a 5xx response.
func (m *Monitor) RecordServerError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.serverErrorCount++
	m.lastServerError = m.clock.Now()
}

// RecordNetworkError records an attempt that never got a response.
func (m *Monitor) RecordNetworkError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.networkErrorCount++
	m.lastServerError = m.clock.Now()
}

// CheckStatus returns the current upstream status.
func (m *Monitor) CheckStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked(m.clock.Now())
}

func (m *Monitor) statusLocked(now time.Time) Status {
	if !m.lastThrottleTime.IsZero() && now.Sub(m.lastThrottleTime) < m.retryAfter {
		return StatusThrottled
	}
	if !m.lastServerError.IsZero() && now.Sub(m.lastServerError) < m.errorGrace {
		return StatusDegraded
	}
	if len(m.recentLatencies) > 10 && m.averageLatencyLocked() > m.slowResponseThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

func (m *Monitor) averageLatencyLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// Stats returns a snapshot of the monitor.
func (m *Monitor) Stats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()
	stats := MonitorStats{
		Status:            m.statusLocked(now),
		AverageLatency:    m.averageLatencyLocked(),
		ThrottleCount:     m.throttleCount,
		ServerErrorCount:  m.serverErrorCount,
		NetworkErrorCount: m.networkErrorCount,
		LastThrottleAt:    m.lastThrottleTime,
		LastRetryAfter:    m.retryAfter,
	}

	cutoff := now.Add(-m.windowDuration)
	for _, t := range m.requestTimestamps {
		if t.After(cutoff) {
			stats.RequestsLastHour++
		}
	}

	if !m.lastThrottleTime.IsZero() {
		if remaining := m.retryAfter - now.Sub(m.lastThrottleTime); remaining > 0 {
			stats.RetryAfterRemaining = remaining
		}
	}
	return stats
}
