// Package linking runs the OAuth flow that associates a chat user with an
// account on a connected platform.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/afraznein/KTPDiscordRelay/internal/core/domain"
	"github.com/afraznein/KTPDiscordRelay/internal/metrics"
)

// Defaults applied by NewService when the config leaves a field empty.
const (
	DefaultAuthorizeURL   = "https://discord.com/oauth2/authorize"
	DefaultTokenURL       = "https://discord.com/api/oauth2/token"
	DefaultConnectionType = "twitch" // connection type matched on the profile
	DefaultPlatformLabel  = "Twitch" // shown on result pages
)

// DefaultScopes are requested on every authorize redirect.
var DefaultScopes = []string{"identify", "connections"}

var (
	ErrMalformedInput = errors.New("user id must be 5 to 30 digits")
	ErrMissingCode    = errors.New("authorization code is missing")
)

var userIDPattern = regexp.MustCompile(`^\d{5,30}$`)

// Config is the oauth section of the relay configuration.
type Config struct {
	ClientID       string        `yaml:"client_id"`
	ClientSecret   string        `yaml:"client_secret" env:"DISCORD_CLIENT_SECRET"`
	RedirectURL    string        `yaml:"redirect_url"`
	AuthorizeURL   string        `yaml:"authorize_url"`
	TokenURL       string        `yaml:"token_url"`
	Scopes         []string      `yaml:"scopes"`
	StateSecret    string        `yaml:"state_secret" env:"RELAY_STATE_SECRET"`
	StateTTL       time.Duration `yaml:"state_ttl"`
	ConnectionType string        `yaml:"connection_type"`
	PlatformLabel  string        `yaml:"platform_label"`
}

// Enabled reports whether the linking routes should be served.
func (c Config) Enabled() bool {
	return c.ClientID != ""
}

// Outcome is the terminal state of one callback.
type Outcome string

const (
	OutcomeLinked       Outcome = "linked"
	OutcomeUnlinked     Outcome = "unlinked"
	OutcomeFailed       Outcome = "failed"
	OutcomeInvalidState Outcome = "invalid_state"
	OutcomeCancelled    Outcome = "cancelled"
)

// Result describes what the callback page should tell the user.
type Result struct {
	Outcome  Outcome
	UserID   string
	Platform string
	Handle   string
}

// Link is the association reported downstream once a callback succeeds.
type Link struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	Platform  string `json:"platform"`
	Handle    string `json:"handle"`
	Username  string `json:"username"`
}

// Profiles reads the authorizing user's identity with their access token.
type Profiles interface {
	GetCurrentUser(ctx context.Context, accessToken string) (domain.User, error)
	GetCurrentUserConnections(ctx context.Context, accessToken string) ([]domain.Connection, error)
}

// Notifier receives completed links.
type Notifier interface {
	NotifyLinked(ctx context.Context, link Link) error
}

// Service drives Start and Callback.
type Service struct {
	oauth          *oauth2.Config
	exchange       *http.Client
	states         *StateManager
	profiles       Profiles
	notifier       Notifier
	connectionType string
	platformLabel  string
}

// NewService wires the orchestrator. exchange is the HTTP client used for
// the code-for-token call; it should not retry since codes are single use.
func NewService(cfg Config, states *StateManager, profiles Profiles, notifier Notifier, exchange *http.Client) *Service {
	authURL := cfg.AuthorizeURL
	if authURL == "" {
		authURL = DefaultAuthorizeURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	connType := cfg.ConnectionType
	if connType == "" {
		connType = DefaultConnectionType
	}
	label := cfg.PlatformLabel
	if label == "" {
		label = DefaultPlatformLabel
	}
	if exchange == nil {
		exchange = http.DefaultClient
	}

	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		exchange:       exchange,
		states:         states,
		profiles:       profiles,
		notifier:       notifier,
		connectionType: connType,
		platformLabel:  label,
	}
}

// PlatformLabel is the display name of the linked platform.
func (s *Service) PlatformLabel() string {
	return s.platformLabel
}

// Start returns the authorize URL the user should be redirected to.
func (s *Service) Start(userID string) (string, error) {
	if !userIDPattern.MatchString(userID) {
		return "", ErrMalformedInput
	}

	state, err := s.states.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("issue state: %w", err)
	}
	return s.oauth.AuthCodeURL(state), nil
}

// Callback completes the flow for the code and state the provider redirected
// back with. The returned Result is always usable for rendering; err carries
// the cause when Outcome is failed or invalid_state.
func (s *Service) Callback(ctx context.Context, code, state string) (Result, error) {
	userID, err := s.states.Verify(state)
	if err != nil {
		s.record(OutcomeInvalidState)
		return Result{Outcome: OutcomeInvalidState, Platform: s.platformLabel}, err
	}
	if code == "" {
		return s.fail(userID, ErrMissingCode)
	}

	token, err := s.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, s.exchange), code)
	if err != nil {
		return s.fail(userID, fmt.Errorf("exchange code: %w", err))
	}

	user, err := s.profiles.GetCurrentUser(ctx, token.AccessToken)
	if err != nil {
		return s.fail(userID, err)
	}
	conns, err := s.profiles.GetCurrentUserConnections(ctx, token.AccessToken)
	if err != nil {
		return s.fail(userID, err)
	}

	conn, ok := findConnection(conns, s.connectionType)
	if !ok {
		slog.Info("No matching connection on profile",
			"user_id", userID,
			"connection_type", s.connectionType,
			"connections", len(conns),
		)
		s.record(OutcomeUnlinked)
		return Result{Outcome: OutcomeUnlinked, UserID: userID, Platform: s.platformLabel}, nil
	}

	if user.ID != "" && user.ID != userID {
		slog.Warn("Authorizing account differs from requesting user",
			"user_id", userID,
			"account_id", user.ID,
		)
	}

	link := Link{
		UserID:    userID,
		AccountID: user.ID,
		Platform:  s.connectionType,
		Handle:    conn.Name,
		Username:  user.Username,
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyLinked(ctx, link); err != nil {
			return s.fail(userID, err)
		}
	}

	slog.Info("Account linked",
		"user_id", userID,
		"platform", s.connectionType,
		"handle", conn.Name,
	)
	s.record(OutcomeLinked)
	return Result{Outcome: OutcomeLinked, UserID: userID, Platform: s.platformLabel, Handle: conn.Name}, nil
}

// Cancelled records a flow the user aborted on the provider's consent screen.
func (s *Service) Cancelled(reason string) Result {
	slog.Info("Authorization cancelled", "reason", reason)
	s.record(OutcomeCancelled)
	return Result{Outcome: OutcomeCancelled, Platform: s.platformLabel}
}

func (s *Service) fail(userID string, err error) (Result, error) {
	slog.Error("Account linking failed", "user_id", userID, "error", err)
	s.record(OutcomeFailed)
	return Result{Outcome: OutcomeFailed, UserID: userID, Platform: s.platformLabel}, err
}

func (s *Service) record(o Outcome) {
	metrics.LinkOutcomes.WithLabelValues(string(o)).Inc()
}

func findConnection(conns []domain.Connection, connType string) (domain.Connection, bool) {
	for _, c := range conns {
		if strings.EqualFold(c.Type, connType) && c.Name != "" {
			return c, true
		}
	}
	return domain.Connection{}, false
}
