package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmojiStore caches guild emoji id→name maps in Redis so several relay
// instances share lookups. Entries expire through Redis key TTLs.
type EmojiStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewEmojiStore creates a Redis-backed emoji store.
func NewEmojiStore(client *Client, ttl time.Duration) *EmojiStore {
	return &EmojiStore{
		rdb: client.rdb,
		ttl: ttl,
	}
}

func emojiKey(guildID string) string {
	return fmt.Sprintf("relay:emojis:%s", guildID)
}

// Get returns the cached map for guildID. Redis errors are logged and
// reported as a miss.
func (s *EmojiStore) Get(ctx context.Context, guildID string) (map[string]string, bool) {
	data, err := s.rdb.Get(ctx, emojiKey(guildID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Emoji cache read failed", "guild_id", guildID, "error", err)
		return nil, false
	}

	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		slog.Warn("Emoji cache entry corrupt", "guild_id", guildID, "error", err)
		return nil, false
	}
	return names, true
}

// Set stores names for guildID with a fresh TTL.
func (s *EmojiStore) Set(ctx context.Context, guildID string, names map[string]string) {
	data, err := json.Marshal(names)
	if err != nil {
		slog.Warn("Failed to marshal emoji map", "guild_id", guildID, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, emojiKey(guildID), data, s.ttl).Err(); err != nil {
		slog.Warn("Emoji cache write failed", "guild_id", guildID, "error", err)
	}
}
