package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/registry"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/upstream"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/pkce"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCodeTTL  = 10 * time.Minute
	DefaultLoginURL = "/login"
)

// AuthorizeService implements the authorize and login steps of the
// authorization-code flow. It holds no per-request state.
type AuthorizeService struct {
	Registry  *registry.Registry
	Users     upstream.UserDirectory
	Store     store.Store
	TwoFactor *TwoFactorService

	// LoginURL is where the login UI lives. Authorize appends the request
	// parameters to it.
	LoginURL string
	CodeTTL  time.Duration

	Metrics *metrics.Recorder
	Tracer  trace.Tracer
	Now     func() time.Time
}

// AuthorizeRequest carries the query of GET /oauth2/authorize. Login repeats
// the same parameters on its query string.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeResult is the login continuation handed to the login UI.
type AuthorizeResult struct {
	LoginURL string
}

// LoginRequest is a credential or step-up submission.
type LoginRequest struct {
	AuthorizeRequest

	Username       string
	Password       string
	TwoFactorCode  string
	TwoFactorToken string
}

// LoginResult reports where the login ended up. AuthorizationCode is set
// when State is Completed, TwoFactorToken when it is AwaitingTwoFactorCode.
// An Expired result comes with ErrTwoFactorExpired.
type LoginResult struct {
	State             LoginState
	AuthorizationCode string
	TwoFactorToken    string

	// Echoed so the caller can build the redirect.
	RedirectURI string
	OAuthState  string
}

// validated is an authorization request that passed client, redirect and
// scope checks.
type validated struct {
	client domain.Client
	scopes []string
	req    AuthorizeRequest
}

// Authorize validates an authorization request and returns the login
// continuation. Nothing is stored.
//
// Checks run in order: unknown client (ErrInvalidClient), response type
// other than "code" (ErrUnsupportedResponseType), unregistered redirect URI
// or unsupported PKCE method (ErrInvalidRequest), scope outside the client's
// set (ErrInvalidScope).
func (s *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (res *AuthorizeResult, err error) {
	ctx, span := startSpan(ctx, s.Tracer, "auth.authorize", attribute.String("client_id", req.ClientID))
	defer func() { endSpan(span, err) }()

	if _, ok := s.Registry.Lookup(req.ClientID); !ok {
		return nil, ErrInvalidClient
	}
	if req.ResponseType != "code" {
		return nil, ErrUnsupportedResponseType
	}

	v, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	loginURL, err := s.buildLoginURL(v)
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Debug("authorization request accepted",
		slog.String("client_id", v.client.ID),
		slog.String("scope", strings.Join(v.scopes, " ")),
	)
	return &AuthorizeResult{LoginURL: loginURL}, nil
}

// Login authenticates the user and, once any two-factor step is satisfied,
// issues an authorization code.
//
// A request carrying both a two-factor token and a code continues a paused
// login. Anything else is a fresh login, which re-runs the authorize checks
// on its query before looking at the credentials.
func (s *AuthorizeService) Login(ctx context.Context, req LoginRequest) (res *LoginResult, err error) {
	ctx, span := startSpan(ctx, s.Tracer, "auth.login", attribute.String("client_id", req.ClientID))
	defer func() {
		endSpan(span, err)
		s.Metrics.Login(loginOutcome(res, err))
	}()

	if req.TwoFactorToken != "" && req.TwoFactorCode != "" {
		return s.continueLogin(ctx, req)
	}
	return s.freshLogin(ctx, req)
}

func (s *AuthorizeService) freshLogin(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	if _, ok := s.Registry.Lookup(req.ClientID); !ok {
		return nil, ErrInvalidClient
	}
	v, err := s.validate(req.AuthorizeRequest)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Users.ValidateCredentials(ctx, req.Username, req.Password)
	if err != nil {
		return nil, upstreamError("validate credentials", err)
	}
	if user == nil {
		log.Info("login rejected", slog.String("client_id", v.client.ID))
		return nil, ErrInvalidCredentials
	}

	state := AwaitingCredentials
	if user.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			token, err := s.TwoFactor.Challenge(ctx, user, PendingAuthorization{
				ClientID:            v.client.ID,
				RedirectURI:         v.req.RedirectURI,
				Scopes:              v.scopes,
				State:               v.req.State,
				CodeChallenge:       v.req.CodeChallenge,
				CodeChallengeMethod: v.req.CodeChallengeMethod,
			})
			if err != nil {
				return nil, err
			}
			if state, err = advance(state, AwaitingTwoFactorCode); err != nil {
				return nil, err
			}
			return &LoginResult{
				State:          state,
				TwoFactorToken: token,
				RedirectURI:    v.req.RedirectURI,
				OAuthState:     v.req.State,
			}, nil
		}

		if err := s.TwoFactor.VerifyCode(ctx, user.PhoneNumber, req.TwoFactorCode); err != nil {
			return nil, err
		}
	}

	code, err := s.issueCode(ctx, user.ID, PendingAuthorization{
		ClientID:            v.client.ID,
		RedirectURI:         v.req.RedirectURI,
		Scopes:              v.scopes,
		State:               v.req.State,
		CodeChallenge:       v.req.CodeChallenge,
		CodeChallengeMethod: v.req.CodeChallengeMethod,
	})
	if err != nil {
		return nil, err
	}
	if state, err = advance(state, Completed); err != nil {
		return nil, err
	}

	log.Info("login completed", slog.String("user_id", user.ID), slog.String("client_id", v.client.ID))
	return &LoginResult{
		State:             state,
		AuthorizationCode: code,
		RedirectURI:       v.req.RedirectURI,
		OAuthState:        v.req.State,
	}, nil
}

// continueLogin resumes a paused login. The session is only consumed once
// the code matched, so a mistyped code can be retried. A missing or lapsed
// session ends the login in Expired alongside ErrTwoFactorExpired.
func (s *AuthorizeService) continueLogin(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	log := slogx.FromContext(ctx)
	state := AwaitingTwoFactorCode

	expire := func(err error) (*LoginResult, error) {
		if !errors.Is(err, ErrTwoFactorExpired) {
			return nil, err
		}
		next, terr := advance(state, Expired)
		if terr != nil {
			return nil, terr
		}
		log.Info("two-factor session expired")
		return &LoginResult{State: next}, err
	}

	sess, err := s.TwoFactor.Session(ctx, req.TwoFactorToken)
	if err != nil {
		return expire(err)
	}

	user, err := s.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, upstreamError("get user", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.TwoFactor.VerifyCode(ctx, user.PhoneNumber, req.TwoFactorCode); err != nil {
		return nil, err
	}

	sess, err = s.TwoFactor.Complete(ctx, req.TwoFactorToken)
	if err != nil {
		return expire(err)
	}

	code, err := s.issueCode(ctx, sess.UserID, PendingAuthorization{
		ClientID:            sess.ClientID,
		RedirectURI:         sess.RedirectURI,
		Scopes:              sess.Scopes,
		State:               sess.State,
		CodeChallenge:       sess.CodeChallenge,
		CodeChallengeMethod: sess.CodeChallengeMethod,
	})
	if err != nil {
		return nil, err
	}
	if state, err = advance(state, Completed); err != nil {
		return nil, err
	}

	log.Info("two-factor login completed", slog.String("user_id", user.ID), slog.String("client_id", sess.ClientID))
	return &LoginResult{
		State:             state,
		AuthorizationCode: code,
		RedirectURI:       sess.RedirectURI,
		OAuthState:        sess.State,
	}, nil
}

// validate runs the redirect, PKCE and scope checks shared by authorize and
// login. The client must already be known.
func (s *AuthorizeService) validate(req AuthorizeRequest) (validated, error) {
	client, ok := s.Registry.Lookup(req.ClientID)
	if !ok {
		return validated{}, ErrInvalidClient
	}
	if req.RedirectURI == "" || !client.AllowsRedirectURI(req.RedirectURI) {
		return validated{}, fmt.Errorf("%w: redirect_uri is not registered for this client", ErrInvalidRequest)
	}

	if req.CodeChallenge != "" {
		if req.CodeChallengeMethod == "" {
			req.CodeChallengeMethod = pkce.MethodPlain
		}
		if !pkce.SupportedMethod(req.CodeChallengeMethod) {
			return validated{}, fmt.Errorf("%w: unsupported code_challenge_method", ErrInvalidRequest)
		}
	} else {
		req.CodeChallengeMethod = ""
	}

	scopes, ok := s.Registry.ResolveScopes(client.ID, req.Scope)
	if !ok {
		return validated{}, ErrInvalidScope
	}

	return validated{client: client, scopes: scopes, req: req}, nil
}

func (s *AuthorizeService) issueCode(ctx context.Context, userID string, p PendingAuthorization) (string, error) {
	code, err := cryptox.GenerateAlphanumeric(cryptox.AuthorizationCodeLength)
	if err != nil {
		return "", fmt.Errorf("generate authorization code: %w", err)
	}

	now := s.now()
	if err := s.Store.AuthorizationCodes().PutAuthorizationCode(ctx, domain.AuthorizationCode{
		Code:                code,
		ClientID:            p.ClientID,
		UserID:              userID,
		RedirectURI:         p.RedirectURI,
		Scopes:              p.Scopes,
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
		ExpiresAt:           now.Add(s.codeTTL()),
		CreatedAt:           now,
	}); err != nil {
		return "", fmt.Errorf("store authorization code: %w", err)
	}
	return code, nil
}

func (s *AuthorizeService) buildLoginURL(v validated) (string, error) {
	base := s.LoginURL
	if base == "" {
		base = DefaultLoginURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse login url: %w", err)
	}

	q := u.Query()
	for _, kv := range [][2]string{
		{"client_id", v.client.ID},
		{"redirect_uri", v.req.RedirectURI},
		{"scope", strings.Join(v.scopes, " ")},
		{"state", v.req.State},
		{"code_challenge", v.req.CodeChallenge},
		{"code_challenge_method", v.req.CodeChallengeMethod},
	} {
		if kv[1] != "" {
			q.Set(kv[0], kv[1])
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *AuthorizeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthorizeService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return DefaultCodeTTL
}

func loginOutcome(res *LoginResult, err error) string {
	switch {
	case err == nil && res != nil && res.State == AwaitingTwoFactorCode:
		return metrics.LoginTwoFactorRequired
	case err == nil:
		return metrics.LoginSuccess
	case errors.Is(err, ErrInvalidCredentials):
		return metrics.LoginInvalidCredentials
	case errors.Is(err, ErrInvalidTwoFactorCode):
		return metrics.LoginInvalidCode
	case errors.Is(err, ErrTwoFactorExpired):
		return metrics.LoginExpired
	case isClientError(err):
		return metrics.LoginRejected
	default:
		return metrics.LoginError
	}
}
