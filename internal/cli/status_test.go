package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
)

func TestFetchStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health/detailed" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"throttled","throttle_count":3,"requests_last_hour":12}`))
	}))
	defer server.Close()

	stats, err := fetchStats(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("fetchStats failed: %v", err)
	}
	if stats.Status != upstream.StatusThrottled || stats.ThrottleCount != 3 || stats.RequestsLastHour != 12 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestFetchStats_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := fetchStats(context.Background(), server.URL); err == nil {
		t.Error("expected error for non-200 status")
	}
}
