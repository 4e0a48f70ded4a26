package jwtx

import (
	"time"
)

// Issuer mints access tokens for users and service identities with a fixed
// lifetime, issuer and audience.
type Issuer struct {
	signer   Signer
	issuer   string
	audience []string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer wires a signer to the issuer/audience metadata. A zero ttl uses
// DefaultAccessTokenTTL.
func NewIssuer(signer Signer, issuer, audience string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	var aud []string
	if audience != "" {
		aud = []string{audience}
	}

	return &Issuer{
		signer:   signer,
		issuer:   issuer,
		audience: aud,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue signs an access token for id carrying scopes.
func (i *Issuer) Issue(id Identity, clientID string, scopes []string) (string, error) {
	claims := NewAccessClaims(id, clientID, scopes, i.ttl, i.issuer, i.audience, i.now().UTC())
	return i.signer.Sign(claims)
}

// TTL is the lifetime of every issued token.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Audience returns the configured audience list.
func (i *Issuer) Audience() []string { return i.audience }
