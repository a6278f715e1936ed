package control

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/afraznein/KTPDiscordRelay/internal/core/clock"
	"github.com/afraznein/KTPDiscordRelay/internal/core/config"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/discord"
	redisclient "github.com/afraznein/KTPDiscordRelay/internal/infra/redis"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
	"github.com/afraznein/KTPDiscordRelay/internal/metrics"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/linking"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/reactions"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/server"
)

const statusInterval = 10 * time.Second

var upstreamStatuses = []upstream.Status{
	upstream.StatusHealthy,
	upstream.StatusDegraded,
	upstream.StatusThrottled,
}

// Relay owns the HTTP server and everything behind it.
type Relay struct {
	cfg         *config.AppConfig
	exec        *upstream.Executor
	server      *server.Server
	redisClient *redisclient.Client
	linking     bool
	log         *slog.Logger
}

// NewRelay builds the relay from cfg. Redis is optional; if it cannot be
// reached the emoji cache stays in process.
func NewRelay(cfg *config.AppConfig) (*Relay, error) {
	exec := upstream.NewExecutor(upstream.NewHTTPClient(cfg.Discord.Timeout))
	policy := cfg.Retry.Policy()
	api := discord.NewClient(cfg.Discord, exec, policy)

	var emojis reactions.EmojiStore = reactions.NewMemoryEmojiStore(cfg.Reactions.EmojiTTL, clock.System{})
	var redisClient *redisclient.Client
	if cfg.Redis.Enabled() {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, using in-memory emoji cache", "error", err)
		} else {
			redisClient = rc
			emojis = redisclient.NewEmojiStore(rc, cfg.Reactions.EmojiTTL)
			slog.Info("Using Redis emoji cache")
		}
	}

	reactionSvc := reactions.NewService(api, emojis, reactions.Config{
		Limit:             cfg.Reactions.Limit,
		MemberConcurrency: cfg.Reactions.MemberConcurrency,
	})

	deps := server.Deps{
		Upstream:  api,
		Reactions: reactionSvc,
		Stats:     exec.Monitor(),
	}

	if cfg.OAuth.Enabled() {
		states := linking.NewStateManager([]byte(cfg.OAuth.StateSecret), cfg.OAuth.StateTTL, clock.System{})
		notifier := linking.NewWebhookNotifier(cfg.Notifier, exec, policy)
		// Authorization codes are single use, so the exchange never retries.
		exchange := &http.Client{Transport: &upstream.Transport{
			Executor: exec,
			Policy:   upstream.NoRetry,
			Route:    "POST /oauth2/token",
		}}
		deps.Linker = linking.NewService(cfg.OAuth, states, api, notifier, exchange)
		slog.Info("Account linking enabled", "connection_type", cfg.OAuth.ConnectionType)
	}

	srv := server.New(server.Config{
		Port:       cfg.Server.Port,
		AuthHeader: cfg.Auth.Header,
		AuthSecret: cfg.Auth.Secret,
	}, deps)

	return &Relay{
		cfg:         cfg,
		exec:        exec,
		server:      srv,
		redisClient: redisClient,
		linking:     deps.Linker != nil,
		log:         slog.Default(),
	}, nil
}

// Handler exposes the routed handler, mainly for tests.
func (r *Relay) Handler() http.Handler {
	return r.server.Handler()
}

// Start starts the HTTP server and the status updater. It does not block.
func (r *Relay) Start(ctx context.Context) error {
	go func() {
		if err := r.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("HTTP server failed", "error", err)
		}
	}()

	go r.runStatusUpdater(ctx)

	r.log.Info("Relay listening", "port", r.cfg.Server.Port, "linking", r.linking)
	return nil
}

// Stop drains in-flight requests and releases connections.
func (r *Relay) Stop(ctx context.Context) error {
	r.log.Info("Stopping relay...")

	err := r.server.Stop(ctx)

	if r.redisClient != nil {
		if cerr := r.redisClient.Close(); cerr != nil {
			r.log.Warn("Failed to close Redis", "error", cerr)
		}
	}
	return err
}

func (r *Relay) runStatusUpdater(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		r.publishStatus()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Relay) publishStatus() {
	current := r.exec.Monitor().CheckStatus()
	for _, s := range upstreamStatuses {
		v := 0.0
		if s == current {
			v = 1
		}
		metrics.UpstreamStatus.WithLabelValues(string(s)).Set(v)
	}
	if current != upstream.StatusHealthy {
		r.log.Debug("Upstream not healthy", "status", current)
	}
}
