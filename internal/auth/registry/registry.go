// Package registry holds the static set of OAuth2 clients. It is loaded once
// at start-up and is read-only afterwards, so it needs no locking.
package registry

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoClients       = errors.New("registry: no clients configured")
	ErrDuplicateID     = errors.New("registry: duplicate client id")
	ErrInvalidClient   = errors.New("registry: invalid client definition")
	ErrUnknownGrant    = errors.New("registry: unknown grant type")
	ErrMissingSecret   = errors.New("registry: client has no secret")
	ErrMissingRedirect = errors.New("registry: authorization_code client has no redirect uri")
)

type file struct {
	Clients []clientEntry `yaml:"clients"`
}

type clientEntry struct {
	ID           string   `yaml:"id"`
	Secret       string   `yaml:"secret"`
	Name         string   `yaml:"name"`
	GrantTypes   []string `yaml:"grant_types"`
	RedirectURIs []string `yaml:"redirect_uris"`
	Scopes       []string `yaml:"scopes"`
}

type Registry struct {
	clients map[string]domain.Client
	ids     []string
}

// Load reads a YAML client registry from path.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client registry: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML client registry document.
func Parse(b []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse client registry: %w", err)
	}

	clients := make([]domain.Client, 0, len(f.Clients))
	for _, e := range f.Clients {
		c := domain.Client{
			ID:           strings.TrimSpace(e.ID),
			Name:         e.Name,
			Secret:       e.Secret,
			RedirectURIs: e.RedirectURIs,
			Scopes:       dedupe(e.Scopes),
		}
		for _, g := range e.GrantTypes {
			c.GrantTypes = append(c.GrantTypes, domain.GrantType(strings.TrimSpace(g)))
		}
		clients = append(clients, c)
	}
	return New(clients...)
}

// New builds a registry from already decoded clients.
func New(clients ...domain.Client) (*Registry, error) {
	if len(clients) == 0 {
		return nil, ErrNoClients
	}

	r := &Registry{clients: make(map[string]domain.Client, len(clients))}
	for _, c := range clients {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidClient)
		}
		if _, ok := r.clients[c.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
		}
		if c.Secret == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingSecret, c.ID)
		}
		for _, g := range c.GrantTypes {
			if !g.Valid() {
				return nil, fmt.Errorf("%w: %s on %s", ErrUnknownGrant, g, c.ID)
			}
		}
		if c.AllowsGrant(domain.GrantAuthorizationCode) && len(c.RedirectURIs) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingRedirect, c.ID)
		}
		if c.Name == "" {
			c.Name = c.ID
		}

		c.GrantTypes = slices.Clone(c.GrantTypes)
		c.RedirectURIs = slices.Clone(c.RedirectURIs)
		c.Scopes = slices.Clone(c.Scopes)
		r.clients[c.ID] = c
		r.ids = append(r.ids, c.ID)
	}
	return r, nil
}

// Lookup returns the client registered under id.
func (r *Registry) Lookup(id string) (domain.Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// IDs lists the registered client ids in load order.
func (r *Registry) IDs() []string { return slices.Clone(r.ids) }

// ValidateSecret checks the presented secret against the stored plaintext or
// argon2id hash. Unknown clients never validate.
func (r *Registry) ValidateSecret(id, secret string) bool {
	c, ok := r.clients[id]
	if !ok || secret == "" {
		return false
	}
	return cryptox.MatchSecret(secret, c.Secret)
}

// ValidateRedirectURI is an exact membership test.
func (r *Registry) ValidateRedirectURI(id, uri string) bool {
	c, ok := r.clients[id]
	return ok && c.AllowsRedirectURI(uri)
}

// ValidateScopes reports whether every whitespace separated scope in
// requested is allowed for the client. An empty request is valid and means
// the client's full allowed set.
func (r *Registry) ValidateScopes(id, requested string) bool {
	_, ok := r.ResolveScopes(id, requested)
	return ok
}

// ResolveScopes returns the effective scope set for a request: the
// de-duplicated requested scopes, or all of the client's scopes when none
// were requested. ok is false when the client is unknown or any scope is not
// allowed.
func (r *Registry) ResolveScopes(id, requested string) (scopes []string, ok bool) {
	c, found := r.clients[id]
	if !found {
		return nil, false
	}

	fields := dedupe(strings.Fields(requested))
	if len(fields) == 0 {
		return slices.Clone(c.Scopes), true
	}
	for _, s := range fields {
		if !c.AllowsScope(s) {
			return nil, false
		}
	}
	return fields, true
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
