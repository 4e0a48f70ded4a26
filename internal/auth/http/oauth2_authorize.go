package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// AuthorizeHandler serves GET /oauth2/authorize.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 authorization endpoint
//	@Description	Validates an authorization code request and returns the URL of the login page.
//	@Description	The login page posts the user's credentials to /oauth2/login with the same query parameters.
//	@Description	Nothing is stored until the login succeeds.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			response_type			query		string						true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string						true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string						true	"Callback URI (must match a registered redirect URI)"
//	@Param			scope					query		string						false	"Space-delimited scopes (defaults to all scopes of the client)"	example(openid profile)
//	@Param			state					query		string						false	"Opaque value for CSRF protection (recommended)"
//	@Param			code_challenge			query		string						false	"PKCE code challenge"	example(E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM)
//	@Param			code_challenge_method	query		string						false	"PKCE method (defaults to plain when a challenge is given)"	Enums(S256, plain)
//	@Success		200						{object}	authsdk.AuthorizeResponse	"login_url"
//	@Failure		400						{object}	authsdk.ErrorResponse		"invalid_client, unsupported_response_type, invalid_request or invalid_scope"
//	@Failure		500						{object}	authsdk.ErrorResponse		"server_error"
//	@Router			/oauth2/authorize [get]
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := h.AuthorizeService.Authorize(ctx, authorizeRequest(r.URL.Query()))
	if err != nil {
		if oerr := oauthError(err); oerr != nil {
			oerr.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("authorize request failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuthorizeResponse{LoginURL: res.LoginURL})
}

// authorizeRequest reads the authorization request parameters. The login
// endpoint carries the same parameters on its query string. Values that are
// compared byte-for-byte later (redirect URI, state, challenge) are kept raw.
func authorizeRequest(q url.Values) service.AuthorizeRequest {
	get := func(key string) string { return strings.TrimSpace(q.Get(key)) }

	return service.AuthorizeRequest{
		ResponseType:        get("response_type"),
		ClientID:            get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: get("code_challenge_method"),
	}
}
