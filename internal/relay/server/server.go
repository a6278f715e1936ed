// Package server exposes the relay over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/afraznein/KTPDiscordRelay/internal/core/domain"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/linking"
)

// Upstream builds and executes bot-authorised calls.
type Upstream interface {
	BotRequest(route, method, path string, body []byte) upstream.Request
	Do(ctx context.Context, req upstream.Request) (*http.Response, error)
}

// Reactions lists enriched reactors.
type Reactions interface {
	ListReactors(ctx context.Context, channelID, messageID, emojiRef string) ([]domain.ReactionRecord, error)
}

// Linker drives the account linking flow.
type Linker interface {
	Start(userID string) (string, error)
	Callback(ctx context.Context, code, state string) (linking.Result, error)
	Cancelled(reason string) linking.Result
}

// StatsSource reports upstream health.
type StatsSource interface {
	Stats() upstream.MonitorStats
}

// Config holds listener and gate settings.
type Config struct {
	Port       int
	AuthHeader string
	AuthSecret string
}

// Deps are the collaborators the routes call into. Linker may be nil, in
// which case the oauth routes are not registered.
type Deps struct {
	Upstream  Upstream
	Reactions Reactions
	Linker    Linker
	Stats     StatsSource
}

// Server provides the relay HTTP endpoints.
type Server struct {
	deps    Deps
	handler http.Handler
	server  *http.Server
}

// New creates a server and registers its routes.
func New(cfg Config, deps Deps) *Server {
	s := &Server{deps: deps}

	mux := http.NewServeMux()
	gate := requireKey(cfg.AuthHeader, cfg.AuthSecret)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /channels/{channelID}", gate(http.HandlerFunc(s.handleGetChannel)))
	mux.Handle("GET /channels/{channelID}/messages", gate(http.HandlerFunc(s.handleListMessages)))
	mux.Handle("POST /channels/{channelID}/messages", gate(http.HandlerFunc(s.handleCreateMessage)))
	mux.Handle("GET /channels/{channelID}/messages/{messageID}", gate(http.HandlerFunc(s.handleGetMessage)))
	mux.Handle("PATCH /channels/{channelID}/messages/{messageID}", gate(http.HandlerFunc(s.handleEditMessage)))
	mux.Handle("DELETE /channels/{channelID}/messages/{messageID}", gate(http.HandlerFunc(s.handleDeleteMessage)))
	mux.Handle("PUT /channels/{channelID}/messages/{messageID}/reactions/{emoji}", gate(http.HandlerFunc(s.handleAddReaction)))
	mux.Handle("GET /channels/{channelID}/messages/{messageID}/reactions/{emoji}", gate(http.HandlerFunc(s.handleListReactions)))
	mux.Handle("POST /users/{userID}/dm", gate(http.HandlerFunc(s.handleDirectMessage)))

	if deps.Linker != nil {
		mux.HandleFunc("GET /oauth/link", s.handleLinkStart)
		mux.HandleFunc("GET /oauth/callback", s.handleLinkCallback)
	}

	s.handler = withRequestID(withAccessLog(mux))
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
