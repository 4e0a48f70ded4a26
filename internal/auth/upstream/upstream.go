// Package upstream holds the collaborators the authorization server calls
// out to: the user directory and the SMS gateway. Every call is a single
// attempt bounded by a timeout.
package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 5 * time.Second

// ErrUnavailable is returned when an upstream could not be reached or
// answered with something other than its documented responses.
var ErrUnavailable = errors.New("upstream: unavailable")

// UserDirectory verifies credentials and resolves users. Both methods return
// (nil, nil) when the user does not exist or the credentials are rejected.
type UserDirectory interface {
	ValidateCredentials(ctx context.Context, username, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// SmsGateway delivers a text message. The boolean reports whether the
// gateway accepted the message for delivery.
type SmsGateway interface {
	Send(ctx context.Context, phoneNumber, message string) (bool, error)
}
