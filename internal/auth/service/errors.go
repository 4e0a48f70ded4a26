package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/upstream"
)

// OAuth2 protocol errors. The names match the RFC 6749 error codes the HTTP
// layer reports for them.
var (
	ErrInvalidClient           = errors.New("invalid_client")
	ErrUnauthorizedClient      = errors.New("unauthorized_client")
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidScope            = errors.New("invalid_scope")
)

// Login errors. Credential failures are deliberately generic so callers
// cannot tell an unknown username from a wrong password.
var (
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrInvalidTwoFactorCode = errors.New("invalid_two_factor_code")
	ErrTwoFactorExpired     = errors.New("two_factor_expired")
	ErrDeliveryFailed       = errors.New("delivery_failed")
)

// ErrUpstreamUnavailable is returned when the user directory or SMS gateway
// could not answer.
var ErrUpstreamUnavailable = upstream.ErrUnavailable

func upstreamError(op string, err error) error {
	if errors.Is(err, upstream.ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}
