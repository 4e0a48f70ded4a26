package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/upstream"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTwoFactorSessionTTL = 10 * time.Minute
	DefaultOneTimeCodeTTL      = 5 * time.Minute

	verificationMessage = "Your verification code is: "
)

// TwoFactorService sends one-time codes and keeps the paused authorization
// requests that wait for them.
type TwoFactorService struct {
	Store      store.Store
	SMS        upstream.SmsGateway
	SessionTTL time.Duration
	CodeTTL    time.Duration
	Metrics    *metrics.Recorder
	Tracer     trace.Tracer
	Now        func() time.Time
}

// PendingAuthorization is the authorization request a login was made for,
// parked while the user fetches their code.
type PendingAuthorization struct {
	ClientID            string
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Challenge sends a fresh code to the user's phone and parks p behind a new
// step-up token. The code is stored before sending and withdrawn again when
// the gateway does not accept it.
func (s *TwoFactorService) Challenge(ctx context.Context, user *domain.User, p PendingAuthorization) (token string, err error) {
	ctx, span := startSpan(ctx, s.Tracer, "auth.two_factor.challenge")
	defer func() { endSpan(span, err) }()

	log := slogx.FromContext(ctx)
	now := s.now()

	if user.PhoneNumber == "" {
		log.Warn("two-factor user has no phone number", slog.String("user_id", user.ID))
		return "", ErrDeliveryFailed
	}

	code, err := cryptox.GenerateNumericCode()
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}

	otps := s.Store.OneTimeCodes()
	if err := otps.PutOneTimeCode(ctx, domain.OneTimeCode{
		PhoneNumber: user.PhoneNumber,
		Code:        code,
		ExpiresAt:   now.Add(s.codeTTL()),
	}); err != nil {
		return "", fmt.Errorf("store one-time code: %w", err)
	}

	delivered, err := s.SMS.Send(ctx, user.PhoneNumber, verificationMessage+code)
	s.Metrics.CodeSent(err == nil && delivered)
	if err != nil || !delivered {
		if rerr := otps.RevokeOneTimeCode(ctx, user.PhoneNumber); rerr != nil {
			log.Error("failed to withdraw undelivered one-time code", slog.Any("error", rerr))
		}
		if err != nil {
			return "", upstreamError("send one-time code", err)
		}
		return "", ErrDeliveryFailed
	}

	token, err = cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate two-factor token: %w", err)
	}

	if err := s.Store.TwoFactorSessions().PutTwoFactorSession(ctx, domain.TwoFactorSession{
		Token:               token,
		UserID:              user.ID,
		ClientID:            p.ClientID,
		RedirectURI:         p.RedirectURI,
		Scopes:              p.Scopes,
		State:               p.State,
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
		ExpiresAt:           now.Add(s.sessionTTL()),
		CreatedAt:           now,
	}); err != nil {
		return "", fmt.Errorf("store two-factor session: %w", err)
	}

	log.Info("two-factor challenge sent",
		slog.String("user_id", user.ID),
		slog.String("client_id", p.ClientID),
		slog.String("phone", slogx.MaskPhone(user.PhoneNumber)),
	)
	return token, nil
}

// Session returns the paused request behind token without consuming it.
func (s *TwoFactorService) Session(ctx context.Context, token string) (domain.TwoFactorSession, error) {
	sess, err := s.Store.TwoFactorSessions().GetTwoFactorSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TwoFactorSession{}, ErrTwoFactorExpired
	}
	return sess, err
}

// VerifyCode consumes the live code for phone when code matches it.
func (s *TwoFactorService) VerifyCode(ctx context.Context, phone, code string) error {
	if phone == "" || code == "" {
		return ErrInvalidTwoFactorCode
	}
	ok, err := s.Store.OneTimeCodes().ConsumeOneTimeCode(ctx, phone, code)
	if err != nil {
		return fmt.Errorf("consume one-time code: %w", err)
	}
	if !ok {
		return ErrInvalidTwoFactorCode
	}
	return nil
}

// Complete consumes the session behind token. It fails with
// ErrTwoFactorExpired if the session lapsed or was completed concurrently.
func (s *TwoFactorService) Complete(ctx context.Context, token string) (domain.TwoFactorSession, error) {
	sess, err := s.Store.TwoFactorSessions().TakeTwoFactorSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TwoFactorSession{}, ErrTwoFactorExpired
	}
	return sess, err
}

func (s *TwoFactorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TwoFactorService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return DefaultTwoFactorSessionTTL
}

func (s *TwoFactorService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return DefaultOneTimeCodeTTL
}
