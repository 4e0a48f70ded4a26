package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/registry"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/tollgate/internal/auth/upstream"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "tollgate-test"
	testAudience = "tollgate-api"
	testRedirect = "http://localhost:3000/callback"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const clientsDoc = `
clients:
  - id: demo-web-app
    secret: demo-secret
    name: Demo Web Application
    grant_types: [authorization_code, refresh_token]
    redirect_uris: ["http://localhost:3000/callback"]
    scopes: [openid, profile, email, api]
  - id: other-web-app
    secret: other-secret
    grant_types: [authorization_code, refresh_token]
    redirect_uris: ["http://localhost:3000/callback"]
    scopes: [openid, profile, email, api]
  - id: demo-service
    secret: service-secret
    name: Demo Service
    grant_types: [client_credentials]
    scopes: [api, reports]
`

const usersDoc = `
users:
  - {id: "1", username: john.doe, password: password123, email: john.doe@example.com, phone_number: "+1234567890", two_factor_enabled: true}
  - {id: "2", username: jane.smith, password: password456, email: jane.smith@example.com, phone_number: "+1234567891", two_factor_enabled: false}
  - {id: "3", username: admin, password: admin123, email: admin@example.com, phone_number: "+1234567892", two_factor_enabled: true}
`

// fakeSMS records messages instead of sending them.
type fakeSMS struct {
	mu      sync.Mutex
	sent    map[string]string
	reject  bool
	unreach bool
}

func (f *fakeSMS) Send(_ context.Context, phone, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[phone] = message
	if f.unreach {
		return false, upstream.ErrUnavailable
	}
	if f.reject {
		return false, nil
	}
	return true, nil
}

// lastCode returns the code most recently sent to phone.
func (f *fakeSMS) lastCode(t *testing.T, phone string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.sent[phone]
	require.True(t, ok, "no message sent to %s", phone)
	require.True(t, strings.HasPrefix(msg, "Your verification code is: "))
	return strings.TrimPrefix(msg, "Your verification code is: ")
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	registry  *registry.Registry
	users     upstream.UserDirectory
	store     *memory.Store
	sms       *fakeSMS
	clock     *clock
	verifier  *jwtx.HS256Verifier
	authorize *service.AuthorizeService
	token     *service.TokenService
	twoFactor *service.TwoFactorService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	reg, err := registry.Parse([]byte(clientsDoc))
	require.NoError(t, err)
	users, err := upstream.ParseStaticDirectory([]byte(usersDoc))
	require.NoError(t, err)

	clk := &clock{now: time.Now().UTC()}
	st := memory.NewStore(memory.WithClock(clk.Now))
	sms := &fakeSMS{}

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	issuer := jwtx.NewIssuer(signer, testIssuer, testAudience, 0)

	tf := &service.TwoFactorService{Store: st, SMS: sms, Now: clk.Now}
	return &harness{
		registry: reg,
		users:    users,
		store:    st,
		sms:      sms,
		clock:    clk,
		verifier: jwtx.NewVerifierHS256(testSecret, testIssuer, []string{testAudience}),
		authorize: &service.AuthorizeService{
			Registry:  reg,
			Users:     users,
			Store:     st,
			TwoFactor: tf,
			LoginURL:  "http://localhost:3000/login",
			Now:       clk.Now,
		},
		token: &service.TokenService{
			Registry: reg,
			Users:    users,
			Store:    st,
			Issuer:   issuer,
			Now:      clk.Now,
		},
		twoFactor: tf,
	}
}

func webLogin(username, password string) service.LoginRequest {
	return service.LoginRequest{
		AuthorizeRequest: service.AuthorizeRequest{
			ClientID:    "demo-web-app",
			RedirectURI: testRedirect,
			Scope:       "openid profile",
			State:       "xyz",
		},
		Username: username,
		Password: password,
	}
}

// loginCode runs a direct login for jane.smith and returns the code.
func (h *harness) loginCode(t *testing.T, req service.LoginRequest) string {
	t.Helper()
	res, err := h.authorize.Login(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, service.Completed, res.State)
	require.Len(t, res.AuthorizationCode, 32)
	return res.AuthorizationCode
}

func codeRequest(code string) service.TokenRequest {
	return service.TokenRequest{
		GrantType:    string(domain.GrantAuthorizationCode),
		ClientID:     "demo-web-app",
		ClientSecret: "demo-secret",
		Code:         code,
		RedirectURI:  testRedirect,
	}
}
