package domain

// Channel is the subset of an upstream channel object the relay reads.
type Channel struct {
	ID      string `json:"id"`
	Type    int    `json:"type"`
	GuildID string `json:"guild_id,omitempty"` // empty for DM channels
}

// HasGuild reports whether the channel belongs to a guild.
func (c Channel) HasGuild() bool {
	return c.GuildID != ""
}
