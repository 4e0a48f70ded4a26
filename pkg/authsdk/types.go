package authsdk

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the JSON body of an OAuth2 error per RFC 6749.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error" example:"invalid_grant"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description" example:"the grant is invalid, expired or already used"`
}

// ============================================================================
// Authorize and Login Types
// ============================================================================

// AuthorizeResponse is returned from GET /oauth2/authorize once the request
// has been validated. The login UI is expected to post the user's
// credentials back to /oauth2/login with the same query parameters.
type AuthorizeResponse struct {
	LoginURL string `json:"login_url" example:"/login?client_id=demo-web-app&redirect_uri=http%3A%2F%2Flocalhost%3A3000%2Fcallback&scope=openid+profile"`
}

// LoginRequest is the JSON body of POST /oauth2/login. The authorization
// request itself travels in the query string.
type LoginRequest struct {
	Username string `json:"username,omitempty" example:"jane.smith"`
	Password string `json:"password,omitempty"`

	// TwoFactorCode is the code sent by SMS. It may accompany the password
	// or be sent on its own with a two_factor_token query parameter.
	TwoFactorCode string `json:"two_factor_code,omitempty" example:"123456"`
}

// LoginResponse is the JSON body returned from POST /oauth2/login.
type LoginResponse struct {
	Success bool `json:"success"`

	// AuthorizationCode is set when Success is true, together with the
	// redirect URI and state the code was issued for.
	AuthorizationCode string `json:"authorization_code,omitempty"`
	RedirectURI       string `json:"redirect_uri,omitempty"`
	State             string `json:"state,omitempty"`

	// RequiresTwoFactor is set when a code has been sent to the user's phone.
	// Repeat the login with TwoFactorToken and the received code.
	RequiresTwoFactor bool   `json:"requires_two_factor,omitempty"`
	TwoFactorToken    string `json:"two_factor_token,omitempty"`

	// ErrorMessage is a user-facing explanation of a failed login.
	ErrorMessage string `json:"error_message,omitempty" example:"Invalid username or password"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the HS256 JWT used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque rotating refresh token. It is absent for
	// client_credentials.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in" example:"900"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty" example:"openid profile"`
}

// IntrospectionResponse represents the RFC 7662 token introspection response.
// An inactive token carries only Active=false.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Iat       int64    `json:"iat,omitempty"`
	Nbf       int64    `json:"nbf,omitempty"`
	Sub       string   `json:"sub,omitempty"`
	Aud       []string `json:"aud,omitempty"`
	Iss       string   `json:"iss,omitempty"`
	Jti       string   `json:"jti,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the status of the grant store.
type HealthChecks struct {
	// Store is "ok" or an error message.
	Store string `json:"store"`

	// Driver names the configured store driver.
	Driver string `json:"driver"`
}
