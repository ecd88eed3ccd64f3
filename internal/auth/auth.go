// Package auth implements the contributor "login" used to unlock the
// submission helper.
//
// This is a mock: a username is checked against a fixed allow-list and the
// result is remembered on the client side with no expiry and no server
// verification. It establishes no identity and must never gate real write
// access.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"
)

// DefaultDelay simulates the membership lookup round trip.
const DefaultDelay = 500 * time.Millisecond

// Errors.
var (
	ErrEmptyUsername = errors.New("username is required")
	ErrNotAllowed    = errors.New("username is not on the contributor list")
)

// allowList holds the contributors who may open submissions.
var allowList = []string{
	"slowvak",
}

// Allowed reports whether username is on the allow-list, ignoring case and
// surrounding whitespace.
func Allowed(username string) bool {
	username = strings.TrimSpace(username)
	for _, u := range allowList {
		if strings.EqualFold(u, username) {
			return true
		}
	}
	return false
}

// Session is the persisted login state. Both keys are optional and are
// always cleared together.
type Session struct {
	Username string `json:"username,omitempty"`
	Marker   string `json:"session,omitempty"`
}

// CanSubmit reports whether the submission controls should be shown.
func (s Session) CanSubmit() bool {
	return s.Username != "" && Allowed(s.Username)
}

// Store persists a Session between runs or page views.
type Store interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// Authenticator performs mock logins against a Store.
type Authenticator struct {
	store   Store
	delay   time.Duration
	limiter *rate.Limiter
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithDelay sets the simulated lookup delay. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(a *Authenticator) {
		a.delay = d
	}
}

// WithLimiter throttles login attempts. The limiter may be shared between
// Authenticators (the server builds one per request).
func WithLimiter(l *rate.Limiter) Option {
	return func(a *Authenticator) {
		a.limiter = l
	}
}

// New creates an Authenticator backed by store.
func New(store Store, opts ...Option) *Authenticator {
	a := &Authenticator{
		store: store,
		delay: DefaultDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login checks username against the allow-list after the simulated delay.
// On success the session is persisted and returned. On failure nothing is
// changed and the caller may retry immediately.
func (a *Authenticator) Login(ctx context.Context, username string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, ErrEmptyUsername
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return Session{}, fmt.Errorf("waiting for login slot: %w", err)
		}
	}

	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Session{}, ctx.Err()
		case <-timer.C:
		}
	}

	if !Allowed(username) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotAllowed, username)
	}

	marker, err := NewMarker(username)
	if err != nil {
		return Session{}, err
	}
	s := Session{Username: username, Marker: marker}
	if err := a.store.Save(s); err != nil {
		return Session{}, fmt.Errorf("saving session: %w", err)
	}
	return s, nil
}

// Logout clears the persisted session.
func (a *Authenticator) Logout() error {
	if err := a.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Current returns the persisted session, empty when logged out.
func (a *Authenticator) Current() (Session, error) {
	s, err := a.store.Load()
	if err != nil {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}
	return s, nil
}

// NewMarker returns an opaque session marker: a digest of a random nonce
// and the username. It carries no authority.
func NewMarker(username string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating session marker: %w", err)
	}
	sum := blake2b.Sum256(append(nonce, []byte(strings.ToLower(username))...))
	return hex.EncodeToString(sum[:16]), nil
}
