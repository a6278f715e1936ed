package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/afraznein/KTPDiscordRelay/internal/core/domain"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
)

const maxRequestBody = 1 << 20

// listMessageParams are the query parameters forwarded to the list call.
var listMessageParams = []string{"limit", "before", "after", "around"}

func channelPath(r *http.Request) string {
	return "/channels/" + url.PathEscape(r.PathValue("channelID"))
}

func messagePath(r *http.Request) string {
	return channelPath(r) + "/messages/" + url.PathEscape(r.PathValue("messageID"))
}

// forward executes one upstream call and relays whatever came back.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, route, method, path string, body []byte) {
	resp, err := s.deps.Upstream.Do(r.Context(), s.deps.Upstream.BotRequest(route, method, path, body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	relay(w, r, resp)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "could not read request body"})
		return nil, false
	}
	if len(body) == 0 || !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "request body must be JSON"})
		return nil, false
	}
	return body, true
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, "GET /channels/{id}", http.MethodGet, channelPath(r), nil)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	path := channelPath(r) + "/messages"

	q := url.Values{}
	for _, key := range listMessageParams {
		if v := r.URL.Query().Get(key); v != "" {
			q.Set(key, v)
		}
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	s.forward(w, r, "GET /channels/{id}/messages", http.MethodGet, path, nil)
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	s.forward(w, r, "POST /channels/{id}/messages", http.MethodPost, channelPath(r)+"/messages", body)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, "GET /channels/{id}/messages/{id}", http.MethodGet, messagePath(r), nil)
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	s.forward(w, r, "PATCH /channels/{id}/messages/{id}", http.MethodPatch, messagePath(r), body)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, "DELETE /channels/{id}/messages/{id}", http.MethodDelete, messagePath(r), nil)
}

func (s *Server) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	path := messagePath(r) + "/reactions/" + url.PathEscape(r.PathValue("emoji")) + "/@me"
	s.forward(w, r, "PUT /channels/{id}/messages/{id}/reactions/{emoji}/@me", http.MethodPut, path, nil)
}

type dmChannelRequest struct {
	RecipientID string `json:"recipient_id"`
}

// handleDirectMessage opens (or reuses) the DM channel, then posts into it.
// A failure opening the channel is returned without attempting the send.
func (s *Server) handleDirectMessage(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	open, err := json.Marshal(dmChannelRequest{RecipientID: r.PathValue("userID")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.deps.Upstream.Do(r.Context(),
		s.deps.Upstream.BotRequest("POST /users/@me/channels", http.MethodPost, "/users/@me/channels", open))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var ch domain.Channel
	if err := upstream.DecodeJSON(resp, &ch); err != nil {
		writeError(w, r, err)
		return
	}
	if ch.ID == "" {
		writeError(w, r, errors.New("dm channel response had no id"))
		return
	}

	path := "/channels/" + url.PathEscape(ch.ID) + "/messages"
	s.forward(w, r, "POST /channels/{id}/messages", http.MethodPost, path, body)
}
