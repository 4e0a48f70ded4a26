package http

import (
	"errors"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
)

// oauthErrors maps service errors to their wire representation, in the
// order they are checked.
var oauthErrors = []struct {
	err  error
	resp *authsdk.OAuth2Error
}{
	{service.ErrInvalidClient, authsdk.ErrInvalidClient},
	{service.ErrUnauthorizedClient, authsdk.ErrUnauthorizedClient},
	{service.ErrUnsupportedResponseType, authsdk.ErrUnsupportedResponseType},
	{service.ErrUnsupportedGrantType, authsdk.ErrUnsupportedGrantType},
	{service.ErrInvalidRequest, authsdk.ErrInvalidRequest},
	{service.ErrInvalidGrant, authsdk.ErrInvalidGrant},
	{service.ErrInvalidScope, authsdk.ErrInvalidScope},
}

// oauthError returns the OAuth2 error for err, or nil when err is not a
// protocol error and must be reported as server_error.
func oauthError(err error) *authsdk.OAuth2Error {
	for _, m := range oauthErrors {
		if errors.Is(err, m.err) {
			return m.resp
		}
	}
	return nil
}
