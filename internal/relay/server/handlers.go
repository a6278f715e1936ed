package server

import (
	"errors"
	"net/http"

	"github.com/afraznein/KTPDiscordRelay/internal/core/domain"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/linking"
)

type reactionsResponse struct {
	Reactions []domain.ReactionRecord `json:"reactions"`
}

func (s *Server) handleListReactions(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Reactions.ListReactors(r.Context(),
		r.PathValue("channelID"), r.PathValue("messageID"), r.PathValue("emoji"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.ReactionRecord{}
	}
	writeJSON(w, http.StatusOK, reactionsResponse{Reactions: records})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := upstream.StatusHealthy
	if s.deps.Stats != nil {
		status = s.deps.Stats.Stats().Status
	}
	// Throttling and 5xx bursts are upstream conditions; the relay itself is up.
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	var stats upstream.MonitorStats
	if s.deps.Stats != nil {
		stats = s.deps.Stats.Stats()
	} else {
		stats.Status = upstream.StatusHealthy
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLinkStart(w http.ResponseWriter, r *http.Request) {
	redirect, err := s.deps.Linker.Start(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) handleLinkCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		renderResult(w, r, s.deps.Linker.Cancelled(reason))
		return
	}

	res, err := s.deps.Linker.Callback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil && !errors.Is(err, linking.ErrInvalidState) {
		logger(r).Warn("Link callback failed", "outcome", res.Outcome, "error", err)
	}
	renderResult(w, r, res)
}
