package config

import (
	"time"

	"github.com/afraznein/KTPDiscordRelay/internal/infra/discord"
	redisclient "github.com/afraznein/KTPDiscordRelay/internal/infra/redis"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/tracing"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/linking"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig           `yaml:"server"`
	Auth      AuthConfig             `yaml:"auth"`
	Discord   discord.Config         `yaml:"discord"`
	Retry     RetryConfig            `yaml:"retry"`
	Reactions ReactionsConfig        `yaml:"reactions"`
	OAuth     linking.Config         `yaml:"oauth"`
	Notifier  linking.NotifierConfig `yaml:"notifier"`
	Redis     redisclient.Config     `yaml:"redis"`
	Logging   LoggingConfig          `yaml:"logging"`
	Tracing   tracing.Config         `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds the shared secret callers present on gated routes.
type AuthConfig struct {
	Header string `yaml:"header"`
	Secret string `yaml:"secret" env:"RELAY_SHARED_SECRET"`
}

// RetryConfig holds the upstream retry budget.
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
}

// Policy converts the section into an executor policy.
func (r RetryConfig) Policy() upstream.Policy {
	return upstream.Policy{MaxRetries: r.MaxRetries, BaseBackoff: r.BaseBackoff}
}

// ReactionsConfig tunes reaction enrichment.
type ReactionsConfig struct {
	Limit             int           `yaml:"limit"`
	MemberConcurrency int           `yaml:"member_concurrency"`
	EmojiTTL          time.Duration `yaml:"emoji_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
