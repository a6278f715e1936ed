package reactions

import (
	"context"
	"time"

	"github.com/afraznein/KTPDiscordRelay/internal/core/clock"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/cache"
)

// DefaultEmojiTTL is how long a guild's emoji list is trusted.
const DefaultEmojiTTL = 60 * time.Second

// EmojiStore caches emoji id→name maps per guild id.
type EmojiStore interface {
	Get(ctx context.Context, guildID string) (map[string]string, bool)
	Set(ctx context.Context, guildID string, names map[string]string)
}

// MemoryEmojiStore is the process-local EmojiStore.
type MemoryEmojiStore struct {
	cache *cache.TTL[string, map[string]string]
}

// NewMemoryEmojiStore creates an in-process store.
func NewMemoryEmojiStore(ttl time.Duration, c clock.Clock) *MemoryEmojiStore {
	if ttl <= 0 {
		ttl = DefaultEmojiTTL
	}
	return &MemoryEmojiStore{cache: cache.NewTTL[string, map[string]string](ttl, c)}
}

func (s *MemoryEmojiStore) Get(_ context.Context, guildID string) (map[string]string, bool) {
	return s.cache.Get(guildID)
}

func (s *MemoryEmojiStore) Set(_ context.Context, guildID string, names map[string]string) {
	s.cache.Set(guildID, names)
}
