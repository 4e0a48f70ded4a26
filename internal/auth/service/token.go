package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/registry"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/upstream"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/pkce"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	TokenTypeBearer = "Bearer"

	serviceSubjectPrefix = "service_"
	serviceEmailDomain   = "@service.local"
)

type TokenService struct {
	Registry   *registry.Registry
	Users      upstream.UserDirectory
	Store      store.Store
	Issuer     *jwtx.Issuer
	RefreshTTL time.Duration

	Metrics *metrics.Recorder
	Tracer  trace.Tracer
	Now     func() time.Time
}

// TokenRequest is the form body of POST /oauth2/token.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Scope        string
}

// Exchange dispatches on the grant type. Every grant authenticates the
// client and requires it to be registered for the grant before touching any
// stored credential.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (pair *domain.TokenPair, err error) {
	ctx, span := startSpan(ctx, s.Tracer, "auth.token",
		attribute.String("grant_type", req.GrantType),
		attribute.String("client_id", req.ClientID),
	)
	defer func() {
		endSpan(span, err)
		s.Metrics.Grant(grantLabel(req.GrantType), grantOutcome(err))
	}()

	grant := domain.GrantType(req.GrantType)
	if !grant.Valid() {
		return nil, ErrUnsupportedGrantType
	}

	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrant(grant) {
		slogx.FromContext(ctx).Info("client not registered for grant",
			slog.String("client_id", client.ID),
			slog.String("grant_type", req.GrantType),
		)
		return nil, ErrUnauthorizedClient
	}

	switch grant {
	case domain.GrantAuthorizationCode:
		return s.exchangeAuthorizationCode(ctx, client, req)
	case domain.GrantClientCredentials:
		return s.exchangeClientCredentials(ctx, client, req)
	case domain.GrantRefreshToken:
		return s.exchangeRefreshToken(ctx, client, req)
	default:
		return nil, ErrUnsupportedGrantType
	}
}

// exchangeAuthorizationCode redeems a code. The code is taken before any
// other check, so it is spent even when a later check fails.
func (s *TokenService) exchangeAuthorizationCode(ctx context.Context, client domain.Client, req TokenRequest) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	if req.Code == "" {
		return nil, ErrInvalidGrant
	}

	code, err := s.Store.AuthorizationCodes().TakeAuthorizationCode(ctx, req.Code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		return nil, fmt.Errorf("take authorization code: %w", err)
	}

	if code.ClientID != client.ID {
		log.Warn("authorization code presented by another client", slog.String("client_id", client.ID))
		return nil, ErrInvalidGrant
	}
	if code.RedirectURI != req.RedirectURI {
		return nil, ErrInvalidGrant
	}
	if !pkce.Verify(req.CodeVerifier, code.CodeChallenge, code.CodeChallengeMethod) {
		log.Info("pkce verification failed", slog.String("client_id", client.ID))
		return nil, ErrInvalidGrant
	}

	user, err := s.lookupUser(ctx, code.UserID)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, client, userIdentity(user), user.ID, code.Scopes, true)
}

func (s *TokenService) exchangeClientCredentials(ctx context.Context, client domain.Client, req TokenRequest) (*domain.TokenPair, error) {
	scopes, ok := s.Registry.ResolveScopes(client.ID, req.Scope)
	if !ok {
		return nil, ErrInvalidScope
	}

	id := jwtx.Identity{
		Subject:  serviceSubjectPrefix + client.ID,
		Username: client.Name,
		Email:    client.ID + serviceEmailDomain,
	}
	return s.issue(ctx, client, id, "", scopes, false)
}

// exchangeRefreshToken rotates a refresh token. The presented token is
// spent whatever happens after it is taken.
func (s *TokenService) exchangeRefreshToken(ctx context.Context, client domain.Client, req TokenRequest) (*domain.TokenPair, error) {
	if req.RefreshToken == "" {
		return nil, ErrInvalidGrant
	}

	old, err := s.Store.RefreshTokens().TakeRefreshToken(ctx, req.RefreshToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		return nil, fmt.Errorf("take refresh token: %w", err)
	}
	if old.ClientID != client.ID {
		slogx.FromContext(ctx).Warn("refresh token presented by another client", slog.String("client_id", client.ID))
		return nil, ErrInvalidGrant
	}

	user, err := s.lookupUser(ctx, old.UserID)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, client, userIdentity(user), user.ID, old.Scopes, true)
}

func (s *TokenService) authenticateClient(ctx context.Context, clientID, secret string) (domain.Client, error) {
	client, ok := s.Registry.Lookup(clientID)
	if !ok || !s.Registry.ValidateSecret(clientID, secret) {
		slogx.FromContext(ctx).Info("client authentication failed", slog.String("client_id", clientID))
		return domain.Client{}, ErrInvalidClient
	}
	return client, nil
}

func (s *TokenService) lookupUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, upstreamError("get user", err)
	}
	if user == nil {
		return nil, ErrInvalidGrant
	}
	return user, nil
}

// issue mints the access token and, for user grants, a fresh refresh token
// bound to the same scopes.
func (s *TokenService) issue(
	ctx context.Context,
	client domain.Client,
	id jwtx.Identity,
	userID string,
	scopes []string,
	withRefresh bool,
) (*domain.TokenPair, error) {
	access, err := s.Issuer.Issue(id, client.ID, scopes)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	pair := &domain.TokenPair{
		AccessToken: access,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.Issuer.TTL(),
		Scope:       strings.Join(scopes, " "),
	}
	if !withRefresh {
		return pair, nil
	}

	token, err := cryptox.GenerateAlphanumeric(cryptox.RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	now := s.now()
	if err := s.Store.RefreshTokens().PutRefreshToken(ctx, domain.RefreshToken{
		Token:     token,
		ClientID:  client.ID,
		UserID:    userID,
		Scopes:    scopes,
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	pair.RefreshToken = token
	return pair, nil
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

func userIdentity(u *domain.User) jwtx.Identity {
	return jwtx.Identity{Subject: u.ID, Username: u.Username, Email: u.Email}
}

func grantLabel(g string) string {
	if domain.GrantType(g).Valid() {
		return g
	}
	return "unknown"
}

func grantOutcome(err error) string {
	if err == nil {
		return "success"
	}
	for _, e := range []error{
		ErrInvalidClient, ErrUnauthorizedClient, ErrInvalidGrant,
		ErrInvalidScope, ErrUnsupportedGrantType, ErrInvalidRequest,
	} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "server_error"
}
