package authsdk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// refreshBuffer is how long before expiry a token is treated as stale.
const refreshBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	clientID     string
	clientSecret string
	expiresAt    time.Time
	scopes       map[string]bool // Granted scopes for fast lookup

	// reauth replaces a refresh for grants that issue no refresh token.
	reauth func(context.Context) (*TokenResponse, error)
}

// newSession creates a new authenticated session from a token response.
func newSession(client *SDKClient, clientID, clientSecret string, tokenResp *TokenResponse) *Session {
	s := &Session{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	s.apply(tokenResp)
	return s
}

// apply stores a token response. Callers hold the write lock or own s.
func (s *Session) apply(tokenResp *TokenResponse) {
	s.accessToken = tokenResp.AccessToken
	s.refreshToken = tokenResp.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - refreshBuffer)
	s.scopes = parseScopes(tokenResp.Scope)
}

// parseScopes parses a space-delimited scope string into a map for fast lookup.
func parseScopes(scopeStr string) map[string]bool {
	if scopeStr == "" {
		return make(map[string]bool)
	}

	parts := strings.Fields(scopeStr)
	scopes := make(map[string]bool, len(parts))
	for _, scope := range parts {
		scopes[scope] = true
	}
	return scopes
}

// Token returns a valid access token, automatically refreshing if expired.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	// Token expired, need to refresh
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	var (
		tokenResp *TokenResponse
		err       error
	)
	switch {
	case s.refreshToken != "":
		tokenResp, err = s.client.RefreshGrant(ctx, s.clientID, s.clientSecret, s.refreshToken)
	case s.reauth != nil:
		tokenResp, err = s.reauth(ctx)
	default:
		return "", fmt.Errorf("access token expired and no refresh token available")
	}
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.apply(tokenResp)
	return s.accessToken, nil
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Scopes returns a copy of the current granted scopes as a slice.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		scopes = append(scopes, scope)
	}
	return scopes
}

// HasScope returns true if the session has the specified scope.
func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope]
}

// HasAllScopes returns true if the session has all of the specified scopes.
func (s *Session) HasAllScopes(scopes ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, scope := range scopes {
		if !s.scopes[scope] {
			return false
		}
	}
	return true
}

// HasAnyScope returns true if the session has at least one of the specified scopes.
func (s *Session) HasAnyScope(scopes ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, scope := range scopes {
		if s.scopes[scope] {
			return true
		}
	}
	return false
}

// TokenSource adapts the session to golang.org/x/oauth2 so it can back an
// oauth2.Client. Tokens are refreshed by the session, not by oauth2.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return sessionTokenSource{ctx: ctx, s: s}
}

type sessionTokenSource struct {
	ctx context.Context
	s   *Session
}

func (ts sessionTokenSource) Token() (*oauth2.Token, error) {
	access, err := ts.s.Token(ts.ctx)
	if err != nil {
		return nil, err
	}

	ts.s.mu.RLock()
	defer ts.s.mu.RUnlock()
	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      ts.s.expiresAt,
	}, nil
}
