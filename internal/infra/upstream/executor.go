package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/afraznein/KTPDiscordRelay/internal/core/clock"
	"github.com/afraznein/KTPDiscordRelay/internal/metrics"
)

var tracer = otel.Tracer("github.com/afraznein/KTPDiscordRelay/internal/infra/upstream")

// diagnosticBodyLimit bounds how much of a retryable response body is kept.
const diagnosticBodyLimit = 512

// Policy is the retry budget for one call.
type Policy struct {
	MaxRetries  int           // extra attempts after the first
	BaseBackoff time.Duration // wait before retry n is BaseBackoff * 2^n
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	MaxRetries:  3,
	BaseBackoff: 500 * time.Millisecond,
}

// NoRetry issues a single attempt.
var NoRetry = Policy{}

// Executor runs outbound calls with bounded retries, honouring
// Retry-After on 429 and backing off exponentially on 5xx and network errors.
type Executor struct {
	client  *http.Client
	clock   clock.Clock
	sleep   func(ctx context.Context, d time.Duration) error
	monitor *Monitor
	log     *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock sets the clock used for Retry-After dates.
func WithClock(c clock.Clock) Option {
	return func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithSleep replaces the backoff sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithMonitor records attempts into m.
func WithMonitor(m *Monitor) Option {
	return func(e *Executor) {
		e.monitor = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// NewHTTPClient creates the pooled client used for upstream calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// NewExecutor creates an Executor. A nil client uses NewHTTPClient(30s).
func NewExecutor(client *http.Client, opts ...Option) *Executor {
	if client == nil {
		client = NewHTTPClient(30 * time.Second)
	}
	e := &Executor{
		client: client,
		clock:  clock.System{},
		sleep:  sleepWithContext,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.monitor == nil {
		e.monitor = NewMonitor(e.clock)
	}
	return e
}

// Monitor returns the executor's upstream monitor.
func (e *Executor) Monitor() *Monitor {
	return e.monitor
}

// Execute performs req, retrying up to policy.MaxRetries times.
//
// Any response other than 429 or 5xx is returned with its body unread and
// the caller must close it. When the budget is exhausted the last failure is
// returned as a *RelayError.
func (e *Executor) Execute(ctx context.Context, req Request, policy Policy) (*http.Response, error) {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}

	ctx, span := tracer.Start(ctx, "upstream "+req.Route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("relay.route", req.Route),
		),
	)
	defer span.End()

	var last Outcome
	attempts := 0
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		attempts++
		out := e.attempt(ctx, req)

		switch out.Kind {
		case OutcomeSuccess:
			span.SetAttributes(
				attribute.Int("http.response.status_code", out.Status),
				attribute.Int("relay.attempts", attempts),
			)
			return out.Response, nil
		case OutcomeTerminal:
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Reason)
			if ctx.Err() != nil {
				return nil, &RelayError{
					Route:    req.Route,
					Status:   last.Status,
					Body:     last.Body,
					Attempts: attempts,
					Err:      out.Err,
				}
			}
			return nil, out.Err
		}

		last = out
		if attempt == policy.MaxRetries {
			break
		}

		wait := ComputeWait(attempt, policy.BaseBackoff, out.RetryAfter, out.HasHint)
		e.log.Warn("Upstream call failed, retrying",
			"route", req.Route,
			"attempt", attempt+1,
			"status", out.Status,
			"reason", out.Reason,
			"wait", wait,
		)
		metrics.UpstreamRetries.WithLabelValues(req.Route).Inc()
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("relay.attempt", attempt+1),
			attribute.Int("http.response.status_code", out.Status),
			attribute.Int64("relay.wait_ms", wait.Milliseconds()),
		))

		if err := e.sleep(ctx, wait); err != nil {
			span.SetStatus(codes.Error, "cancelled during backoff")
			return nil, &RelayError{
				Route:    req.Route,
				Status:   last.Status,
				Body:     last.Body,
				Attempts: attempts,
				Err:      err,
			}
		}
	}

	e.log.Error("Upstream call exhausted retries",
		"route", req.Route,
		"attempts", attempts,
		"status", last.Status,
		"reason", last.Reason,
	)
	span.SetAttributes(attribute.Int("relay.attempts", attempts))
	span.SetStatus(codes.Error, "retries exhausted")
	return nil, &RelayError{
		Route:    req.Route,
		Status:   last.Status,
		Body:     last.Body,
		Attempts: attempts,
		Err:      last.Err,
	}
}

// attempt issues one call and classifies the result.
func (e *Executor) attempt(ctx context.Context, req Request) Outcome {
	httpReq, err := req.build(ctx)
	if err != nil {
		return Outcome{Kind: OutcomeTerminal, Reason: "build request", Err: err}
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	latency := time.Since(start)
	metrics.UpstreamLatency.WithLabelValues(req.Route).Observe(latency.Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.UpstreamRequests.WithLabelValues(req.Route, OutcomeTerminal.String()).Inc()
			return Outcome{Kind: OutcomeTerminal, Reason: "context done", Err: ctxErr}
		}
		e.monitor.RecordNetworkError()
		metrics.UpstreamRequests.WithLabelValues(req.Route, OutcomeRetryable.String()).Inc()
		return Outcome{Kind: OutcomeRetryable, Reason: err.Error(), Err: err}
	}

	e.monitor.RecordRequest(latency)

	if !IsRetryableStatus(resp.StatusCode) {
		metrics.UpstreamRequests.WithLabelValues(req.Route, OutcomeSuccess.String()).Inc()
		return Outcome{Kind: OutcomeSuccess, Response: resp, Status: resp.StatusCode}
	}

	prefix, _ := io.ReadAll(io.LimitReader(resp.Body, diagnosticBodyLimit))
	_ = resp.Body.Close()

	hint, hasHint := ParseRetryAfter(resp.Header.Get("Retry-After"), e.clock.Now())
	if resp.StatusCode == http.StatusTooManyRequests {
		e.monitor.RecordThrottle(hint)
	} else {
		e.monitor.RecordServerError()
	}
	metrics.UpstreamRequests.WithLabelValues(req.Route, OutcomeRetryable.String()).Inc()

	return Outcome{
		Kind:       OutcomeRetryable,
		Status:     resp.StatusCode,
		Body:       string(prefix),
		Reason:     http.StatusText(resp.StatusCode),
		Err:        errors.New(resp.Status),
		RetryAfter: hint,
		HasHint:    hasHint,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
