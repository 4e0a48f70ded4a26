package jwtx

import (
	"slices"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants.
const (
	// DefaultAccessTokenTTL is the fixed lifetime of issued access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the lifetime of refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims. The token is self-contained; nothing
// about it is stored server side.
type Claims struct {
	jwt.RegisteredClaims

	// Username of the user, or the client name for service identities.
	Username string `json:"username,omitempty"`

	// Email of the user, or <client_id>@service.local for service identities.
	Email string `json:"email,omitempty"`

	// Granted scopes, e.g. ["openid", "profile"].
	Scopes []string `json:"scopes,omitempty"`

	// ClientID the token was issued to.
	ClientID string `json:"client_id,omitempty"`
}

// Identity is the subject an access token is minted for.
type Identity struct {
	Subject  string
	Username string
	Email    string
}

// NewAccessClaims builds minimally-correct claims.
func NewAccessClaims(
	id Identity,
	clientID string,
	scopes []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.Subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.NewAt(now).String(),
		},
		Username: id.Username,
		Email:    id.Email,
		Scopes:   scopes,
		ClientID: clientID,
	}
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
