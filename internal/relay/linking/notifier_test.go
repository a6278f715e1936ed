package linking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
)

func newTestNotifier(t *testing.T, h http.Handler, secret string) *WebhookNotifier {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	exec := upstream.NewExecutor(server.Client(),
		upstream.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	return NewWebhookNotifier(NotifierConfig{URL: server.URL + "/hooks/link", Secret: secret}, exec, upstream.Policy{MaxRetries: 2})
}

func TestWebhookNotifier_PostsLink(t *testing.T) {
	var got Link
	var key string
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/hooks/link" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		key = r.Header.Get(DefaultNotifierHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}), "hook-secret")

	link := Link{UserID: testUserID, AccountID: testUserID, Platform: "twitch", Handle: "ktp_streamer", Username: "ktp_player"}
	if err := n.NotifyLinked(context.Background(), link); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != link {
		t.Errorf("payload = %+v, want %+v", got, link)
	}
	if key != "hook-secret" {
		t.Errorf("expected secret header, got %q", key)
	}
}

func TestWebhookNotifier_IgnoresClientErrorStatus(t *testing.T) {
	var calls atomic.Int32
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get(DefaultNotifierHeader) != "" {
			t.Error("secret header should be omitted when unset")
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"already linked"}`))
	}), "")

	if err := n.NotifyLinked(context.Background(), Link{UserID: testUserID}); err != nil {
		t.Errorf("non-2xx should not be an error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestWebhookNotifier_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), "")

	err := n.NotifyLinked(context.Background(), Link{UserID: testUserID})

	var relayErr *upstream.RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("expected *upstream.RelayError, got %T: %v", err, err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}
