package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// User-facing login messages. Credential failures share one message so the
// response never reveals whether a username exists.
const (
	msgInvalidCredentials = "Invalid username or password"
	msgInvalidCode        = "Invalid verification code"
	msgSessionExpired     = "Invalid or expired two-factor session"
	msgInvalidRequest     = "Invalid authorization request"
	msgDeliveryFailed     = "Unable to deliver verification code"
	msgInternal           = "Internal server error"
)

// LoginHandler serves POST /oauth2/login.
type LoginHandler struct {
	AuthorizeService *service.AuthorizeService
}

// ServeHTTP godoc
//
//	@Summary		Login step of the authorization code flow
//	@Description	Checks the user's credentials for the authorization request in the query string and issues an authorization code.
//	@Description
//	@Description	Users with two-factor enabled first receive requires_two_factor and a two_factor_token; a 6-digit code is sent by SMS.
//	@Description	Repeat the call with two_factor_token in the query and two_factor_code in the body to finish.
//	@Description	A two_factor_code may also be sent together with the password.
//	@Tags			OAuth2
//	@Accept			json
//	@Produce		json
//	@Param			client_id				query		string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string					true	"Callback URI"
//	@Param			scope					query		string					false	"Space-delimited scopes"
//	@Param			state					query		string					false	"Opaque client state"
//	@Param			code_challenge			query		string					false	"PKCE code challenge"
//	@Param			code_challenge_method	query		string					false	"PKCE method"	Enums(S256, plain)
//	@Param			two_factor_token		query		string					false	"Token from a previous requires_two_factor response"
//	@Param			body					body		authsdk.LoginRequest	true	"Credentials or verification code"
//	@Success		200						{object}	authsdk.LoginResponse	"authorization_code, or requires_two_factor with two_factor_token"
//	@Failure		400						{object}	authsdk.LoginResponse	"error_message"
//	@Failure		500						{object}	authsdk.LoginResponse	"error_message"
//	@Router			/oauth2/login [post]
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeLoginError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	var body authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		writeLoginError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query := r.URL.Query()
	res, err := h.AuthorizeService.Login(ctx, service.LoginRequest{
		AuthorizeRequest: authorizeRequest(query),
		Username:         strings.TrimSpace(body.Username),
		Password:         body.Password,
		TwoFactorCode:    strings.TrimSpace(body.TwoFactorCode),
		TwoFactorToken:   strings.TrimSpace(query.Get("two_factor_token")),
	})
	if err != nil {
		status, msg := loginFailure(err)
		if status >= http.StatusInternalServerError {
			log.Error("login failed", "error", err)
		}
		writeLoginError(w, status, msg)
		return
	}

	switch res.State {
	case service.AwaitingTwoFactorCode:
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			Success:           false,
			RequiresTwoFactor: true,
			TwoFactorToken:    res.TwoFactorToken,
		})
	case service.Completed:
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			Success:           true,
			AuthorizationCode: res.AuthorizationCode,
			RedirectURI:       res.RedirectURI,
			State:             res.OAuthState,
		})
	default:
		log.Error("login ended in unexpected state", "state", res.State.String())
		writeLoginError(w, http.StatusInternalServerError, msgInternal)
	}
}

// loginFailure picks the status and message for a failed login.
func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest, msgInvalidCredentials
	case errors.Is(err, service.ErrInvalidTwoFactorCode):
		return http.StatusBadRequest, msgInvalidCode
	case errors.Is(err, service.ErrTwoFactorExpired):
		return http.StatusBadRequest, msgSessionExpired
	case errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusInternalServerError, msgDeliveryFailed
	case oauthError(err) != nil:
		return http.StatusBadRequest, msgInvalidRequest
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeLoginError(w http.ResponseWriter, status int, msg string) {
	httpx.WriteJSON(w, status, authsdk.LoginResponse{Success: false, ErrorMessage: msg})
}
