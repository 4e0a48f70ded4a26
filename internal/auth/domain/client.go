package domain

import "slices"

// GrantType is an OAuth2 grant a client may be allowed to use.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
	GrantRefreshToken      GrantType = "refresh_token"
)

// Valid reports whether g is one of the supported grants.
func (g GrantType) Valid() bool {
	switch g {
	case GrantAuthorizationCode, GrantClientCredentials, GrantRefreshToken:
		return true
	}
	return false
}

// Client is a registered OAuth2 client. Clients are immutable once loaded.
type Client struct {
	ID   string
	Name string

	// Secret is either plaintext or an argon2id PHC hash.
	Secret string

	GrantTypes   []GrantType
	RedirectURIs []string
	Scopes       []string
}

func (c Client) AllowsGrant(g GrantType) bool {
	return slices.Contains(c.GrantTypes, g)
}

// AllowsRedirectURI is an exact string match, no normalization.
func (c Client) AllowsRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

func (c Client) AllowsScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}
