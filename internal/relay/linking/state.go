package linking

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/afraznein/KTPDiscordRelay/internal/core/clock"
)

// DefaultStateTTL is how long a state token stays valid.
const DefaultStateTTL = 10 * time.Minute

func init() {
	// Whole-second claims would let a token issued late in a second expire early.
	jwt.TimePrecision = time.Millisecond
}

// ErrInvalidState covers malformed, forged and expired state tokens alike.
var ErrInvalidState = errors.New("state is invalid or expired")

// StateManager issues and verifies signed, time-bound state tokens that carry
// the initiating user through the OAuth redirect without server-side storage.
type StateManager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewStateManager creates a manager signing with secret (HS256).
func NewStateManager(secret []byte, ttl time.Duration, c clock.Clock) *StateManager {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if c == nil {
		c = clock.System{}
	}
	return &StateManager{secret: secret, ttl: ttl, clock: c}
}

// Issue signs a token for userID.
func (m *StateManager) Issue(userID string) (string, error) {
	issued := jwt.NewNumericDate(m.clock.Now())
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  issued,
		ExpiresAt: jwt.NewNumericDate(issued.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Verify returns the user id carried by token. Every failure is ErrInvalidState.
func (m *StateManager) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidState
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil || claims.Subject == "" || claims.IssuedAt == nil {
		return "", ErrInvalidState
	}

	// Issuance age is checked on its own so a long exp cannot extend the window.
	if m.clock.Now().Sub(claims.IssuedAt.Time) > m.ttl {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}
