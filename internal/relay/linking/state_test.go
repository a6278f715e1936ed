package linking

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/afraznein/KTPDiscordRelay/internal/core/clock"
)

var stateEpoch = time.Date(2026, 4, 10, 20, 0, 0, 0, time.UTC)

func TestState_RoundTrip(t *testing.T) {
	m := NewStateManager([]byte("secret"), DefaultStateTTL, clock.NewManual(stateEpoch))

	token, err := m.Issue("123456789012345678")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != "123456789012345678" {
		t.Errorf("expected user id back, got %q", got)
	}
}

func TestState_Expired(t *testing.T) {
	c := clock.NewManual(stateEpoch)
	m := NewStateManager([]byte("secret"), DefaultStateTTL, c)

	token, err := m.Issue("123456")
	if err != nil {
		t.Fatal(err)
	}

	c.Advance(9 * time.Minute)
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("expected valid at 9m, got %v", err)
	}

	c.Advance(2 * time.Minute)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after 11m, got %v", err)
	}
}

func TestState_SubSecondIssuanceKeepsFullWindow(t *testing.T) {
	c := clock.NewManual(stateEpoch.Add(900 * time.Millisecond))
	m := NewStateManager([]byte("secret"), DefaultStateTTL, c)

	token, err := m.Issue("123456")
	if err != nil {
		t.Fatal(err)
	}

	c.Advance(DefaultStateTTL - 800*time.Millisecond)
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("expected valid just inside the window, got %v", err)
	}

	c.Advance(time.Second)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState past the window, got %v", err)
	}
}

func TestState_DifferentSecret(t *testing.T) {
	c := clock.NewManual(stateEpoch)
	issuer := NewStateManager([]byte("secret-a"), DefaultStateTTL, c)
	verifier := NewStateManager([]byte("secret-b"), DefaultStateTTL, c)

	token, err := issuer.Issue("123456")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestState_OldIssuanceWithLongExpiry(t *testing.T) {
	c := clock.NewManual(stateEpoch)
	m := NewStateManager([]byte("secret"), DefaultStateTTL, c)

	claims := jwt.RegisteredClaims{
		Subject:   "123456",
		IssuedAt:  jwt.NewNumericDate(stateEpoch.Add(-11 * time.Minute)),
		ExpiresAt: jwt.NewNumericDate(stateEpoch.Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for stale issuance, got %v", err)
	}
}

func TestState_Malformed(t *testing.T) {
	m := NewStateManager([]byte("secret"), DefaultStateTTL, clock.NewManual(stateEpoch))

	token, err := m.Issue("123456")
	if err != nil {
		t.Fatal(err)
	}
	tampered := token[:strings.LastIndex(token, ".")] + ".AAAA"

	for _, tok := range []string{"", "not-a-token", "a.b.c", tampered} {
		if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidState) {
			t.Errorf("Verify(%q) = %v, want ErrInvalidState", tok, err)
		}
	}
}

func TestState_RejectsNoneAlgorithm(t *testing.T) {
	m := NewStateManager([]byte("secret"), DefaultStateTTL, clock.NewManual(stateEpoch))

	claims := jwt.RegisteredClaims{
		Subject:   "123456",
		IssuedAt:  jwt.NewNumericDate(stateEpoch),
		ExpiresAt: jwt.NewNumericDate(stateEpoch.Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for alg=none, got %v", err)
	}
}
