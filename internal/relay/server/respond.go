package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/linking"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/reactions"
)

type errorBody struct {
	Error string `json:"error"`
}

type relayFailure struct {
	Error    string `json:"error"`
	Status   int    `json:"status"`
	Body     string `json:"body"`
	Attempts int    `json:"attempts"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// relay copies an upstream response to the caller unchanged.
func relay(w http.ResponseWriter, r *http.Request, resp *http.Response) {
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger(r).Warn("Failed to relay response body", "error", err)
	}
}

// writeError maps a failure onto the caller-facing response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var relayErr *upstream.RelayError
	var statusErr *upstream.StatusError

	switch {
	case errors.As(err, &relayErr):
		logger(r).Error("Upstream retries exhausted",
			"route", relayErr.Route,
			"status", relayErr.Status,
			"attempts", relayErr.Attempts,
			"error", relayErr.Err,
		)
		writeJSON(w, http.StatusBadGateway, relayFailure{
			Error:    "upstream request failed",
			Status:   relayErr.Status,
			Body:     relayErr.Body,
			Attempts: relayErr.Attempts,
		})
	case errors.As(err, &statusErr):
		if statusErr.ContentType != "" {
			w.Header().Set("Content-Type", statusErr.ContentType)
		}
		w.WriteHeader(statusErr.Status)
		_, _ = w.Write(statusErr.Body)
	case errors.Is(err, reactions.ErrMalformedInput), errors.Is(err, linking.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		logger(r).Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
