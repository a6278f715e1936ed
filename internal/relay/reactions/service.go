// Package reactions lists the users who reacted to a message and enriches
// each with their guild roles.
package reactions

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/afraznein/KTPDiscordRelay/internal/core/domain"
	"github.com/afraznein/KTPDiscordRelay/internal/metrics"
)

// ErrMalformedInput is returned before any upstream call when a required
// identifier is missing.
var ErrMalformedInput = errors.New("channel and message ids are required")

var (
	namedEmojiPattern = regexp.MustCompile(`^([^:\s]+):(\d+)$`)
	emojiIDPattern    = regexp.MustCompile(`^\d+$`)
)

// Upstream is the subset of the API client the service needs.
type Upstream interface {
	GetChannel(ctx context.Context, channelID string) (domain.Channel, error)
	ListGuildEmojis(ctx context.Context, guildID string) ([]domain.Emoji, error)
	ListReactions(ctx context.Context, channelID, messageID, segment string, limit int) ([]domain.User, error)
	GetGuildMember(ctx context.Context, guildID, userID string) (domain.Member, error)
}

// Config tunes reactor listing.
type Config struct {
	Limit             int `yaml:"limit"`
	MemberConcurrency int `yaml:"member_concurrency"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	Limit:             100,
	MemberConcurrency: 4,
}

// Service resolves reactions and enriches reactors.
type Service struct {
	api    Upstream
	emojis EmojiStore
	cfg    Config
	log    *slog.Logger
}

// NewService creates a Service. Zero config values take defaults.
func NewService(api Upstream, emojis EmojiStore, cfg Config) *Service {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig.Limit
	}
	if cfg.MemberConcurrency <= 0 {
		cfg.MemberConcurrency = DefaultConfig.MemberConcurrency
	}
	return &Service{
		api:    api,
		emojis: emojis,
		cfg:    cfg,
		log:    slog.Default().With("component", "reactions"),
	}
}

// ListReactors returns everyone who reacted to the message with emojiRef,
// in upstream order. A non-2xx from the reaction list is returned as
// *upstream.StatusError; channel and member lookup failures only drop role data.
func (s *Service) ListReactors(ctx context.Context, channelID, messageID, emojiRef string) ([]domain.ReactionRecord, error) {
	if channelID == "" || messageID == "" {
		return nil, ErrMalformedInput
	}

	guildID := s.guildOf(ctx, channelID)
	emoji := s.ResolveEmoji(ctx, emojiRef, guildID)

	users, err := s.api.ListReactions(ctx, channelID, messageID, emoji.Segment(), s.cfg.Limit)
	if err != nil {
		return nil, err
	}

	records := make([]domain.ReactionRecord, len(users))
	if guildID == "" {
		for i, u := range users {
			records[i] = domain.NewReactionRecord(u, nil)
		}
		return records, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MemberConcurrency)
	for i, u := range users {
		g.Go(func() error {
			records[i] = domain.NewReactionRecord(u, s.rolesFor(gctx, guildID, u.ID))
			return nil
		})
	}
	_ = g.Wait()

	return records, nil
}

// ResolveEmoji turns a caller-supplied emoji reference into name and id.
//
//	"fire:123" → {fire, 123}
//	"123"      → {name from the guild's emoji list, 123}
//	"🔥"       → {🔥, ""}
func (s *Service) ResolveEmoji(ctx context.Context, ref, guildID string) domain.EmojiRef {
	if m := namedEmojiPattern.FindStringSubmatch(ref); m != nil {
		return domain.EmojiRef{Name: m[1], ID: m[2]}
	}
	if emojiIDPattern.MatchString(ref) {
		e := domain.EmojiRef{ID: ref}
		if guildID != "" {
			e.Name = s.emojiName(ctx, guildID, ref)
		}
		return e
	}
	return domain.EmojiRef{Name: ref}
}

func (s *Service) guildOf(ctx context.Context, channelID string) string {
	ch, err := s.api.GetChannel(ctx, channelID)
	if err != nil {
		s.log.Debug("Channel lookup failed, skipping role enrichment", "channel_id", channelID, "error", err)
		return ""
	}
	return ch.GuildID
}

func (s *Service) emojiName(ctx context.Context, guildID, emojiID string) string {
	if names, ok := s.emojis.Get(ctx, guildID); ok {
		metrics.EmojiCacheLookups.WithLabelValues("hit").Inc()
		return names[emojiID]
	}
	metrics.EmojiCacheLookups.WithLabelValues("miss").Inc()

	emojis, err := s.api.ListGuildEmojis(ctx, guildID)
	if err != nil {
		s.log.Debug("Emoji list lookup failed", "guild_id", guildID, "error", err)
		return ""
	}

	names := make(map[string]string, len(emojis))
	for _, e := range emojis {
		if e.ID != "" {
			names[e.ID] = e.Name
		}
	}
	s.emojis.Set(ctx, guildID, names)
	return names[emojiID]
}

func (s *Service) rolesFor(ctx context.Context, guildID, userID string) []string {
	m, err := s.api.GetGuildMember(ctx, guildID, userID)
	if err != nil {
		s.log.Debug("Member lookup failed, using empty roles", "guild_id", guildID, "user_id", userID, "error", err)
		return nil
	}
	return m.Roles
}
