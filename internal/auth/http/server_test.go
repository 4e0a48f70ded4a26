package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	authhttp "github.com/aussiebroadwan/tollgate/internal/auth/http"
	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/registry"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/tollgate/internal/auth/upstream"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
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
`

// fakeSMS captures verification messages.
type fakeSMS struct {
	mu     sync.Mutex
	sent   map[string]string
	reject bool
}

func (f *fakeSMS) Send(_ context.Context, phone, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return false, nil
	}
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[phone] = message
	return true, nil
}

func (f *fakeSMS) code(t *testing.T, phone string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.sent[phone]
	require.True(t, ok, "no message sent to %s", phone)
	return strings.TrimPrefix(msg, "Your verification code is: ")
}

type testServer struct {
	*httptest.Server
	sms      *fakeSMS
	verifier *jwtx.HS256Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithStore(t, memory.NewStore())
}

func newTestServerWithStore(t *testing.T, st store.Store) *testServer {
	t.Helper()

	reg, err := registry.Parse([]byte(clientsDoc))
	require.NoError(t, err)
	users, err := upstream.ParseStaticDirectory([]byte(usersDoc))
	require.NoError(t, err)
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	sms := &fakeSMS{}
	rec := metrics.New()
	verifier := jwtx.NewVerifierHS256(testSecret, testIssuer, []string{testAudience})

	router := authhttp.NewRouter(verifier, reg, "test", st, rec, slogx.Discard())
	router.AuthorizeService = &service.AuthorizeService{
		Registry:  reg,
		Users:     users,
		Store:     st,
		TwoFactor: &service.TwoFactorService{Store: st, SMS: sms, Metrics: rec},
		LoginURL:  "http://localhost:3000/login",
		Metrics:   rec,
	}
	router.TokenService = &service.TokenService{
		Registry: reg,
		Users:    users,
		Store:    st,
		Issuer:   jwtx.NewIssuer(signer, testIssuer, testAudience, 0),
		Metrics:  rec,
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, sms: sms, verifier: verifier}
}

func authorizeQuery(scope string) url.Values {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {"demo-web-app"},
		"redirect_uri":  {testRedirect},
		"state":         {"xyz"},
	}
	if scope != "" {
		q.Set("scope", scope)
	}
	return q
}

func (s *testServer) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (s *testServer) login(t *testing.T, query url.Values, body authsdk.LoginRequest) (int, authsdk.LoginResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(s.URL+"/oauth2/login?"+query.Encode(), "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out authsdk.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (s *testServer) token(t *testing.T, form url.Values) (int, map[string]any) {
	t.Helper()
	resp, err := http.PostForm(s.URL+"/oauth2/token", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}
