package discord

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	exec := upstream.NewExecutor(nil, upstream.WithSleep(func(context.Context, time.Duration) error { return nil }))
	return NewClient(Config{APIBase: server.URL, BotToken: "tok"}, exec, upstream.Policy{MaxRetries: 1})
}

func TestGetChannel_SendsBotAuth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bot tok" {
			t.Errorf("unexpected auth %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"id":"42","type":0,"guild_id":"7"}`))
	}))

	ch, err := c.GetChannel(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ch.HasGuild() || ch.GuildID != "7" {
		t.Errorf("expected guild 7, got %+v", ch)
	}
}

func TestListReactions_ForwardsStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("expected limit=100, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Unknown Emoji","code":10014}`))
	}))

	_, err := c.ListReactions(context.Background(), "1", "2", "fire", 100)

	var statusErr *upstream.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *upstream.StatusError, got %T: %v", err, err)
	}
	if statusErr.Status != http.StatusNotFound || string(statusErr.Body) != `{"message":"Unknown Emoji","code":10014}` {
		t.Errorf("unexpected status error %+v", statusErr)
	}
	if statusErr.ContentType != "application/json" {
		t.Errorf("expected content type to be kept, got %q", statusErr.ContentType)
	}
}

func TestGetCurrentUser_UsesBearer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("unexpected auth %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"id":"123456","username":"abc","global_name":"ABC"}`))
	}))

	u, err := c.GetCurrentUser(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.DisplayName() != "ABC" {
		t.Errorf("expected global name, got %q", u.DisplayName())
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{}, upstream.NewExecutor(nil), upstream.DefaultPolicy)
	if c.URL("/x") != DefaultAPIBase+"/x" {
		t.Errorf("unexpected url %s", c.URL("/x"))
	}
}
