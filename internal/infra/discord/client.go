// Package discord is a typed client for the Discord REST endpoints the relay
// consumes. Every call goes through the upstream executor.
package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/afraznein/KTPDiscordRelay/internal/core/domain"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
)

const (
	DefaultAPIBase   = "https://discord.com/api/v10"
	DefaultUserAgent = "DiscordBot (https://github.com/afraznein/KTPDiscordRelay, 1.0)"
)

// Config holds upstream API settings.
type Config struct {
	APIBase   string        `yaml:"api_base"`
	BotToken  string        `yaml:"bot_token" env:"DISCORD_BOT_TOKEN"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Client calls the Discord REST API.
type Client struct {
	base      string
	botToken  string
	userAgent string
	exec      *upstream.Executor
	policy    upstream.Policy
}

// NewClient creates a client. Calls use policy for retries.
func NewClient(cfg Config, exec *upstream.Executor, policy upstream.Policy) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		base:      base,
		botToken:  cfg.BotToken,
		userAgent: ua,
		exec:      exec,
		policy:    policy,
	}
}

// URL joins path onto the API base.
func (c *Client) URL(path string) string {
	return c.base + path
}

// BotRequest builds a request authorised with the bot credential.
func (c *Client) BotRequest(route, method, path string, body []byte) upstream.Request {
	req := upstream.NewRequest(route, method, c.URL(path), body).
		WithHeader("Authorization", "Bot "+c.botToken).
		WithHeader("User-Agent", c.userAgent)
	if body != nil {
		req = req.WithHeader("Content-Type", "application/json")
	}
	return req
}

// BearerRequest builds a request authorised with a user's OAuth token.
func (c *Client) BearerRequest(route, method, path, accessToken string) upstream.Request {
	return upstream.NewRequest(route, method, c.URL(path), nil).
		WithHeader("Authorization", "Bearer "+accessToken).
		WithHeader("User-Agent", c.userAgent)
}

// Do executes req with the client's retry policy.
func (c *Client) Do(ctx context.Context, req upstream.Request) (*http.Response, error) {
	return c.exec.Execute(ctx, req, c.policy)
}

func (c *Client) getJSON(ctx context.Context, req upstream.Request, v any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return upstream.DecodeJSON(resp, v)
}

// GetChannel fetches a channel.
func (c *Client) GetChannel(ctx context.Context, channelID string) (domain.Channel, error) {
	var ch domain.Channel
	req := c.BotRequest("GET /channels/{id}", http.MethodGet, "/channels/"+url.PathEscape(channelID), nil)
	if err := c.getJSON(ctx, req, &ch); err != nil {
		return domain.Channel{}, fmt.Errorf("get channel %s: %w", channelID, err)
	}
	return ch, nil
}

// ListGuildEmojis lists a guild's custom emojis.
func (c *Client) ListGuildEmojis(ctx context.Context, guildID string) ([]domain.Emoji, error) {
	var emojis []domain.Emoji
	req := c.BotRequest("GET /guilds/{id}/emojis", http.MethodGet,
		"/guilds/"+url.PathEscape(guildID)+"/emojis", nil)
	if err := c.getJSON(ctx, req, &emojis); err != nil {
		return nil, fmt.Errorf("list emojis for guild %s: %w", guildID, err)
	}
	return emojis, nil
}

// GetGuildMember fetches one member of a guild.
func (c *Client) GetGuildMember(ctx context.Context, guildID, userID string) (domain.Member, error) {
	var m domain.Member
	req := c.BotRequest("GET /guilds/{id}/members/{user}", http.MethodGet,
		"/guilds/"+url.PathEscape(guildID)+"/members/"+url.PathEscape(userID), nil)
	if err := c.getJSON(ctx, req, &m); err != nil {
		return domain.Member{}, fmt.Errorf("get member %s in guild %s: %w", userID, guildID, err)
	}
	return m, nil
}

// ListReactions lists up to limit users who reacted with the emoji segment.
// A non-2xx answer is returned as *upstream.StatusError.
func (c *Client) ListReactions(ctx context.Context, channelID, messageID, segment string, limit int) ([]domain.User, error) {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s?limit=%s",
		url.PathEscape(channelID), url.PathEscape(messageID), segment, strconv.Itoa(limit))
	req := c.BotRequest("GET /channels/{id}/messages/{id}/reactions/{emoji}", http.MethodGet, path, nil)

	var users []domain.User
	if err := c.getJSON(ctx, req, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetCurrentUser fetches the profile owning accessToken.
func (c *Client) GetCurrentUser(ctx context.Context, accessToken string) (domain.User, error) {
	var u domain.User
	req := c.BearerRequest("GET /users/@me", http.MethodGet, "/users/@me", accessToken)
	if err := c.getJSON(ctx, req, &u); err != nil {
		return domain.User{}, fmt.Errorf("get current user: %w", err)
	}
	return u, nil
}

// GetCurrentUserConnections lists external accounts linked to the token's owner.
func (c *Client) GetCurrentUserConnections(ctx context.Context, accessToken string) ([]domain.Connection, error) {
	var conns []domain.Connection
	req := c.BearerRequest("GET /users/@me/connections", http.MethodGet, "/users/@me/connections", accessToken)
	if err := c.getJSON(ctx, req, &conns); err != nil {
		return nil, fmt.Errorf("get connections: %w", err)
	}
	return conns, nil
}
