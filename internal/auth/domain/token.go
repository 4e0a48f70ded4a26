package domain

import "time"

// TokenPair is what the token endpoint returns: the short-lived access token
// (JWT) and, for user grants, the opaque refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	Scope        string // space-delimited
}

// RefreshToken is a rotating grant. Each use deletes it and creates a new one
// carrying the same scopes.
type RefreshToken struct {
	Token     string
	ClientID  string
	UserID    string
	Scopes    []string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
