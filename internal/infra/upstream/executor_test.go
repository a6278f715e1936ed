package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// recordingSleep captures requested waits instead of sleeping.
type recordingSleep struct {
	waits []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestExecutor(s *recordingSleep) *Executor {
	return NewExecutor(NewHTTPClient(5*time.Second), WithSleep(s.sleep))
}

func TestExecute_AlwaysThrottled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"You are being rate limited."}`))
	}))
	defer server.Close()

	s := &recordingSleep{}
	e := newTestExecutor(s)

	policy := Policy{MaxRetries: 3, BaseBackoff: 100 * time.Millisecond}
	resp, err := e.Execute(context.Background(), NewRequest("GET /test", http.MethodGet, server.URL, nil), policy)
	if resp != nil {
		t.Fatalf("expected no response, got %d", resp.StatusCode)
	}

	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("expected *RelayError, got %T: %v", err, err)
	}
	if relayErr.Status != http.StatusTooManyRequests {
		t.Errorf("expected last status 429, got %d", relayErr.Status)
	}
	if relayErr.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", relayErr.Attempts)
	}
	if relayErr.Body != `{"message":"You are being rate limited."}` {
		t.Errorf("unexpected body prefix %q", relayErr.Body)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 4 upstream calls, got %d", got)
	}
	if len(s.waits) != 3 {
		t.Fatalf("expected 3 waits (one per retry), got %d", len(s.waits))
	}
	for i, w := range s.waits {
		if w != 2*time.Second {
			t.Errorf("wait %d = %v, want Retry-After 2s", i, w)
		}
	}
}

func TestExecute_ThrottledOnceThenOK(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	s := &recordingSleep{}
	e := newTestExecutor(s)

	resp, err := e.Execute(context.Background(), NewRequest("GET /test", http.MethodGet, server.URL, nil), Policy{MaxRetries: 5, BaseBackoff: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("expected 200 ok, got %d %q", resp.StatusCode, body)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
	if len(s.waits) != 1 || s.waits[0] != time.Second {
		t.Errorf("expected a single 1s wait, got %v", s.waits)
	}
}

func TestExecute_ServerErrorBacksOffExponentially(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	s := &recordingSleep{}
	e := newTestExecutor(s)

	_, err := e.Execute(context.Background(), NewRequest("GET /test", http.MethodGet, server.URL, nil), Policy{MaxRetries: 3, BaseBackoff: 100 * time.Millisecond})
	if err == nil {
		t.Fatal("expected error")
	}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(s.waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), s.waits)
	}
	for i := range want {
		if s.waits[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, s.waits[i], want[i])
		}
	}
}

func TestExecute_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Unknown Message","code":10008}`))
	}))
	defer server.Close()

	s := &recordingSleep{}
	e := newTestExecutor(s)

	resp, err := e.Execute(context.Background(), NewRequest("GET /test", http.MethodGet, server.URL, nil), DefaultPolicy)
	if err != nil {
		t.Fatalf("4xx must be returned, not failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"message":"Unknown Message","code":10008}` {
		t.Errorf("body should be left unread for the caller, got %q", body)
	}
	if calls.Load() != 1 || len(s.waits) != 0 {
		t.Errorf("expected a single call and no waits, got %d calls %v waits", calls.Load(), s.waits)
	}
}

func TestExecute_NetworkErrorIsRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	s := &recordingSleep{}
	e := newTestExecutor(s)

	_, err := e.Execute(context.Background(), NewRequest("GET /test", http.MethodGet, url, nil), Policy{MaxRetries: 2, BaseBackoff: 10 * time.Millisecond})

	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("expected *RelayError, got %T: %v", err, err)
	}
	if relayErr.Status != 0 || relayErr.Attempts != 3 {
		t.Errorf("expected status 0 after 3 attempts, got %d after %d", relayErr.Status, relayErr.Attempts)
	}
	if len(s.waits) != 2 || s.waits[0] != 10*time.Millisecond || s.waits[1] != 20*time.Millisecond {
		t.Errorf("unexpected waits %v", s.waits)
	}
	if e.Monitor().Stats().NetworkErrorCount != 3 {
		t.Errorf("expected 3 network errors recorded, got %d", e.Monitor().Stats().NetworkErrorCount)
	}
}

func TestExecute_ReplaysBodyAndHeaders(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"content":"hi"}` {
			t.Errorf("attempt %d: body %q", calls.Load()+1, body)
		}
		if r.Header.Get("Authorization") != "Bot token" {
			t.Errorf("missing auth header")
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	s := &recordingSleep{}
	e := newTestExecutor(s)

	req, err := NewJSONRequest("POST /test", http.MethodPost, server.URL, map[string]string{"content": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithHeader("Authorization", "Bot token")

	resp, err := e.Execute(context.Background(), req, Policy{MaxRetries: 3, BaseBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor(nil, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := e.Execute(ctx, NewRequest("GET /test", http.MethodGet, server.URL, nil), DefaultPolicy)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecute_CancelledDuringCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		cancel()
		<-r.Context().Done()
	}))
	defer server.Close()

	s := &recordingSleep{}
	e := newTestExecutor(s)

	_, err := e.Execute(ctx, NewRequest("GET /test", http.MethodGet, server.URL, nil), DefaultPolicy)

	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("expected *RelayError, got %T: %v", err, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if relayErr.Attempts != 2 || relayErr.Status != http.StatusBadGateway {
		t.Errorf("expected last status 502 after 2 attempts, got %d after %d", relayErr.Status, relayErr.Attempts)
	}
}

func TestRequest_WithHeaderDoesNotMutateOriginal(t *testing.T) {
	base := NewRequest("GET /x", http.MethodGet, "http://example.invalid", nil)
	withAuth := base.WithHeader("Authorization", "Bot a")

	if base.Header.Get("Authorization") != "" {
		t.Error("original request header was mutated")
	}
	if withAuth.Header.Get("Authorization") != "Bot a" {
		t.Error("header not set on copy")
	}
}
