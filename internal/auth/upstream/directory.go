package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

// HTTPDirectory talks to the user service over its JSON API.
type HTTPDirectory struct {
	c client
}

func NewHTTPDirectory(baseURL string, timeout time.Duration, opts ...Option) *HTTPDirectory {
	return &HTTPDirectory{c: newClient(baseURL, timeout, opts...)}
}

type validateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ValidateCredentials posts to /api/users/validate. A 401 means the
// credentials were rejected.
func (d *HTTPDirectory) ValidateCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	const path = "/api/users/validate"

	status, body, err := d.c.do(ctx, "upstream.users.validate", http.MethodPost, path, validateRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return decodeUser(path, body)
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, nil
	default:
		return nil, unexpected(path, status)
	}
}

// GetByID fetches /api/users/{id}. A 404 means no such user.
func (d *HTTPDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	path := "/api/users/" + url.PathEscape(id)

	status, body, err := d.c.do(ctx, "upstream.users.get", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return decodeUser(path, body)
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, unexpected(path, status)
	}
}

func decodeUser(path string, body []byte) (*domain.User, error) {
	var u domain.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrUnavailable, path, err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: %s returned a user without id", ErrUnavailable, path)
	}
	return &u, nil
}
