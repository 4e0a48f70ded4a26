package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/registry"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// IntrospectHandler serves POST /oauth2/introspect following RFC 7662.
// Callers authenticate as a registered client.
type IntrospectHandler struct {
	Verifier jwtx.Verifier
	Registry *registry.Registry
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Reports whether an access token is active and returns its claims (RFC 7662).
//	@Description	The caller authenticates with its client credentials in the form body or with HTTP Basic.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Only access_token is supported"	Enums(access_token)
//	@Param			client_id		formData	string							false	"Client identifier (unless sent with Basic auth)"
//	@Param			client_secret	formData	string							false	"Client secret (unless sent with Basic auth)"
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400				{object}	authsdk.ErrorResponse			"invalid_request or invalid_client"
//	@Header			200				{string}	Cache-Control					"no-store"
//	@Router			/oauth2/introspect [post]
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	clientID, secret := clientCredentials(r)
	if !h.Registry.ValidateSecret(clientID, secret) {
		authsdk.ErrInvalidClient.WriteError(w)
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// Only access tokens are self-describing; anything else is reported
	// inactive without saying why.
	if hint := r.PostForm.Get("token_type_hint"); hint != "" && hint != "access_token" {
		writeInactive(w)
		return
	}

	claims, err := h.Verifier.Verify(token)
	if err != nil {
		log.Debug("introspected token rejected", "error", err)
		writeInactive(w)
		return
	}

	resp := authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     strings.Join(claims.Scopes, " "),
		ClientID:  claims.ClientID,
		Username:  claims.Username,
		Email:     claims.Email,
		TokenType: "Bearer",
		Sub:       claims.Subject,
		Aud:       claims.Audience,
		Iss:       claims.Issuer,
		Jti:       claims.ID,
	}
	if claims.ExpiresAt != nil {
		resp.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		resp.Iat = claims.IssuedAt.Unix()
	}
	if claims.NotBefore != nil {
		resp.Nbf = claims.NotBefore.Unix()
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func writeInactive(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
}
