package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"github.com/afraznein/KTPDiscordRelay/internal/infra/discord"
	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/linking"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/reactions"
)

// maxReactionLimit is the largest page the reactions endpoint accepts.
const maxReactionLimit = 100

// Load reads configuration from a YAML file, then overlays secrets from the
// environment. An empty path skips the file.
//
// Sections where zero is a meaningful setting are seeded before decoding so
// an explicit zero in the file survives.
func Load(path string) (*AppConfig, error) {
	cfg := AppConfig{
		Retry: RetryConfig{
			MaxRetries:  upstream.DefaultPolicy.MaxRetries,
			BaseBackoff: upstream.DefaultPolicy.BaseBackoff,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Auth.Header == "" {
		cfg.Auth.Header = "X-Relay-Key"
	}
	if cfg.Discord.APIBase == "" {
		cfg.Discord.APIBase = discord.DefaultAPIBase
	}
	if cfg.Discord.Timeout == 0 {
		cfg.Discord.Timeout = 30 * time.Second
	}
	if cfg.Reactions.Limit == 0 {
		cfg.Reactions.Limit = reactions.DefaultConfig.Limit
	}
	if cfg.Reactions.MemberConcurrency == 0 {
		cfg.Reactions.MemberConcurrency = reactions.DefaultConfig.MemberConcurrency
	}
	if cfg.Reactions.EmojiTTL == 0 {
		cfg.Reactions.EmojiTTL = reactions.DefaultEmojiTTL
	}
	if cfg.OAuth.StateTTL == 0 {
		cfg.OAuth.StateTTL = linking.DefaultStateTTL
	}
	if cfg.OAuth.ConnectionType == "" {
		cfg.OAuth.ConnectionType = linking.DefaultConnectionType
	}
	if cfg.OAuth.PlatformLabel == "" {
		cfg.OAuth.PlatformLabel = linking.DefaultPlatformLabel
	}
	if len(cfg.OAuth.Scopes) == 0 {
		cfg.OAuth.Scopes = linking.DefaultScopes
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate reports every problem with cfg at once.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	if c.Discord.BotToken == "" {
		errs = append(errs, errors.New("discord.bot_token is required"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries must not be negative"))
	}
	if c.Retry.BaseBackoff < 0 {
		errs = append(errs, errors.New("retry.base_backoff must not be negative"))
	}
	if c.Reactions.Limit < 1 || c.Reactions.Limit > maxReactionLimit {
		errs = append(errs, fmt.Errorf("reactions.limit must be between 1 and %d", maxReactionLimit))
	}

	if c.OAuth.Enabled() {
		if c.OAuth.ClientSecret == "" {
			errs = append(errs, errors.New("oauth.client_secret is required when oauth is enabled"))
		}
		if c.OAuth.StateSecret == "" {
			errs = append(errs, errors.New("oauth.state_secret is required when oauth is enabled"))
		}
		if c.OAuth.RedirectURL == "" {
			errs = append(errs, errors.New("oauth.redirect_url is required when oauth is enabled"))
		}
		if c.Notifier.URL == "" {
			errs = append(errs, errors.New("notifier.url is required when oauth is enabled"))
		}
	}

	return errors.Join(errs...)
}
