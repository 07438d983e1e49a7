// Package auth implements the stateless admin session authenticator:
// HMAC-signed tokens validated without server-side session state, a
// shared revocation set for logout, and per-username login lockout.
package auth

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrInvalidCredentials indicates a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrLockedOut indicates too many failed attempts; the caller
	// should retry after the lockout window, not fix the password.
	ErrLockedOut = errors.New("too many failed attempts, try again later")
)

// Config holds authenticator settings.
type Config struct {
	Username      string
	Password      string
	TokenSecret   string
	SessionTTL    time.Duration // default 24h
	MaxAttempts   int           // default 5
	LockoutWindow time.Duration // default 15m
}

type attemptState struct {
	count       int
	lastAttempt time.Time
}

// Authenticator issues, validates, and revokes admin session tokens.
// Token validity needs no per-token storage; only explicit logouts are
// tracked, in a set shared by all validation paths.
type Authenticator struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	failed  map[string]*attemptState
	revoked map[string]time.Time // token -> natural expiry
}

// New creates an Authenticator, applying defaults for unset limits.
func New(cfg Config, logger *slog.Logger) *Authenticator {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		cfg:     cfg,
		logger:  logger,
		failed:  make(map[string]*attemptState),
		revoked: make(map[string]time.Time),
	}
}

// Login checks credentials and issues a session token. Locked-out
// usernames are refused before credentials are examined, so a correct
// password does not bypass the window.
func (a *Authenticator) Login(username, password string) (token string, expiresIn time.Duration, err error) {
	now := time.Now()

	if a.isLockedOut(username, now) {
		a.logger.Warn("login refused, username locked out", "username", username)
		return "", 0, ErrLockedOut
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
	if !userOK || !passOK {
		a.recordFailure(username, now)
		return "", 0, ErrInvalidCredentials
	}

	a.clearFailures(username)

	expiresAt := now.Add(a.cfg.SessionTTL)
	token = signToken([]byte(a.cfg.TokenSecret), username, expiresAt)
	a.logger.Info("admin authenticated", "username", username)
	return token, a.cfg.SessionTTL, nil
}

// Validate checks a session token: revocation first, then signature,
// then expiry.
func (a *Authenticator) Validate(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrTokenInvalid
	}

	a.mu.Lock()
	_, revoked := a.revoked[token]
	a.mu.Unlock()
	if revoked {
		return Claims{}, ErrTokenRevoked
	}

	return parseToken([]byte(a.cfg.TokenSecret), token, time.Now())
}

// Logout adds a token to the shared revocation set. The token stays
// revoked until its natural expiry, after which PurgeRevoked may drop
// it. Unparseable tokens are held for a full session TTL.
func (a *Authenticator) Logout(token string) {
	if token == "" {
		return
	}

	expiry := time.Now().Add(a.cfg.SessionTTL)
	if claims, err := parseToken([]byte(a.cfg.TokenSecret), token, time.Time{}); err == nil {
		expiry = claims.ExpiresAt
	}

	a.mu.Lock()
	a.revoked[token] = expiry
	a.mu.Unlock()
	a.logger.Info("session token revoked")
}

// PurgeRevoked drops revoked tokens past their natural expiry and
// stale failed-attempt counters. Returns the number of tokens dropped.
func (a *Authenticator) PurgeRevoked(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	dropped := 0
	for token, expiry := range a.revoked {
		if now.After(expiry) {
			delete(a.revoked, token)
			dropped++
		}
	}
	for username, state := range a.failed {
		if now.Sub(state.lastAttempt) >= a.cfg.LockoutWindow {
			delete(a.failed, username)
		}
	}
	return dropped
}

func (a *Authenticator) isLockedOut(username string, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, ok := a.failed[username]
	if !ok || state.count < a.cfg.MaxAttempts {
		return false
	}
	if now.Sub(state.lastAttempt) >= a.cfg.LockoutWindow {
		delete(a.failed, username)
		return false
	}
	return true
}

func (a *Authenticator) recordFailure(username string, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, ok := a.failed[username]
	if !ok {
		state = &attemptState{}
		a.failed[username] = state
	}
	state.count++
	state.lastAttempt = now
	a.logger.Warn("failed login attempt", "username", username, "attempt", state.count)
}

func (a *Authenticator) clearFailures(username string) {
	a.mu.Lock()
	delete(a.failed, username)
	a.mu.Unlock()
}
