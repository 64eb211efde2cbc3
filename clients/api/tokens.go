package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/mo"

	"drocsid/clients/localstore"
	"drocsid/core/clock"
	"drocsid/core/log"
	"drocsid/models"
)

// TokenStore holds the session credential pair and mirrors it to local state
type TokenStore struct {
	kv    localstore.Store
	clock clock.Clock

	mu        sync.RWMutex
	creds     models.Credentials
	userID    string
	expiresAt time.Time
}

// NewTokenStore loads any credential persisted by a previous session
func NewTokenStore(kv localstore.Store, clk clock.Clock) (*TokenStore, error) {
	s := &TokenStore{kv: kv, clock: clk}

	stored, err := localstore.Lookup[models.Credentials](kv, localstore.KeyCredentials)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored credentials: %w", err)
	}
	if stored.IsPresent() {
		s.apply(stored.MustGet())
		log.Info("🔑 Restored stored session", "user_id", s.userID)
	}
	return s, nil
}

func (s *TokenStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

func (s *TokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

func (s *TokenStore) HasSession() bool {
	return s.AccessToken() != ""
}

// UserID returns the subject of the access token when it is a readable JWT
func (s *TokenStore) UserID() mo.Option[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == "" {
		return mo.None[string]()
	}
	return mo.Some(s.userID)
}

// ExpiresWithin reports whether the access token is known to expire within d
func (s *TokenStore) ExpiresWithin(d time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.AccessToken == "" || s.expiresAt.IsZero() {
		return false
	}
	return s.clock.Now().Add(d).After(s.expiresAt)
}

// Set replaces the credential pair and persists it
func (s *TokenStore) Set(creds models.Credentials) error {
	s.apply(creds)
	if err := s.kv.Set(localstore.KeyCredentials, creds); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// Clear drops the session both in memory and on disk
func (s *TokenStore) Clear() error {
	s.apply(models.Credentials{})
	if err := s.kv.Remove(localstore.KeyCredentials); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

func (s *TokenStore) apply(creds models.Credentials) {
	userID, expiresAt := readClaims(creds.AccessToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.userID = userID
	s.expiresAt = expiresAt
}

// readClaims extracts subject and expiry without verifying the signature. The
// server is the only verifier; the client just plans refreshes. Opaque tokens
// yield zero values.
func readClaims(token string) (string, time.Time) {
	if token == "" {
		return "", time.Time{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		log.Debug("Access token is not a readable JWT", "error", err)
		return "", time.Time{}
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return claims.Subject, expiresAt
}
