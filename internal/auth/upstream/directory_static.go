package upstream

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"gopkg.in/yaml.v3"
)

var ErrInvalidUser = errors.New("upstream: invalid user definition")

type usersFile struct {
	Users []userEntry `yaml:"users"`
}

type userEntry struct {
	ID               string `yaml:"id"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	PasswordHash     string `yaml:"password_hash"`
	Email            string `yaml:"email"`
	FirstName        string `yaml:"first_name"`
	LastName         string `yaml:"last_name"`
	PhoneNumber      string `yaml:"phone_number"`
	TwoFactorEnabled bool   `yaml:"two_factor_enabled"`
}

type staticUser struct {
	user   domain.User
	secret string
}

// StaticDirectory is an in-process user directory seeded from YAML. It is
// read-only after load.
type StaticDirectory struct {
	byID       map[string]staticUser
	byUsername map[string]string
}

// LoadStaticDirectory reads a YAML users file.
func LoadStaticDirectory(path string) (*StaticDirectory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return ParseStaticDirectory(b)
}

func ParseStaticDirectory(b []byte) (*StaticDirectory, error) {
	var f usersFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}

	d := &StaticDirectory{
		byID:       make(map[string]staticUser, len(f.Users)),
		byUsername: make(map[string]string, len(f.Users)),
	}
	for _, e := range f.Users {
		if e.ID == "" || e.Username == "" {
			return nil, fmt.Errorf("%w: id and username are required", ErrInvalidUser)
		}
		secret := e.PasswordHash
		if secret == "" {
			secret = e.Password
		}
		if secret == "" {
			return nil, fmt.Errorf("%w: %s has no password", ErrInvalidUser, e.Username)
		}
		if _, ok := d.byID[e.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidUser, e.ID)
		}
		if _, ok := d.byUsername[e.Username]; ok {
			return nil, fmt.Errorf("%w: duplicate username %s", ErrInvalidUser, e.Username)
		}

		d.byID[e.ID] = staticUser{
			user: domain.User{
				ID:               e.ID,
				Username:         e.Username,
				Email:            e.Email,
				FirstName:        e.FirstName,
				LastName:         e.LastName,
				PhoneNumber:      e.PhoneNumber,
				TwoFactorEnabled: e.TwoFactorEnabled,
			},
			secret: secret,
		}
		d.byUsername[e.Username] = e.ID
	}
	return d, nil
}

func (d *StaticDirectory) ValidateCredentials(_ context.Context, username, password string) (*domain.User, error) {
	id, ok := d.byUsername[username]
	if !ok || password == "" {
		return nil, nil
	}
	u := d.byID[id]
	if !cryptox.MatchSecret(password, u.secret) {
		return nil, nil
	}
	out := u.user
	return &out, nil
}

func (d *StaticDirectory) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := d.byID[id]
	if !ok {
		return nil, nil
	}
	out := u.user
	return &out, nil
}

// Len reports how many users were loaded.
func (d *StaticDirectory) Len() int { return len(d.byID) }
