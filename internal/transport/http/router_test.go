package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-accounts-nosql/internal/application/account"
	"github.com/go-accounts-nosql/internal/config"
	"github.com/go-accounts-nosql/internal/domain"
	"github.com/go-accounts-nosql/internal/infrastructure/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAccounts answers login with a wrong-password failure; other operations are unused here.
type stubAccounts struct {
	account.Service
	logins int
}

func (s *stubAccounts) Login(context.Context, domain.LoginRequest) (*domain.Identity, error) {
	s.logins++
	return nil, domain.ErrUnauthorized
}

func newTestServer(t *testing.T) (http.Handler, *stubAccounts) {
	return newTestServerWithConfig(t, &config.Config{AllowedOrigins: []string{"*"}})
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) (http.Handler, *stubAccounts) {
	t.Helper()
	svc := &stubAccounts{}
	h, stop := NewRouter(cfg, &Deps{Accounts: svc, Metrics: metrics.New()})
	t.Cleanup(stop)
	return h, svc
}

// loginsAllowed sends n logins from one peer, each with a different X-Forwarded-For.
func loginsAllowed(h http.Handler, n int) int {
	allowed := 0
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/accounts/login", bytes.NewBufferString(`{}`))
		req.RemoteAddr = "198.51.100.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusTooManyRequests {
			allowed++
		}
	}
	return allowed
}

func TestRouter_HealthPing(t *testing.T) {
	h, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pong")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/dance", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_MetricsExposed(t *testing.T) {
	h, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestRouter_ProfileWithoutJWTProvider(t *testing.T) {
	h, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/accounts/show_profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_UnknownMethodOnRoute(t *testing.T) {
	h, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/accounts/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRouter_LoginIsRateLimited(t *testing.T) {
	h, svc := newTestServer(t)
	body := `{"email":"ada@example.com","password":"nope"}`

	var last int
	for i := 0; i < 11; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/accounts/login", bytes.NewBufferString(body)))
		last = rr.Code
		if i < 10 {
			assert.Equal(t, http.StatusUnauthorized, rr.Code, "request %d", i)
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, 10, svc.logins)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/accounts/update_profile", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch))
}

func TestRouter_ForwardedForIgnoredByDefault(t *testing.T) {
	h, _ := newTestServer(t)
	assert.Equal(t, 10, loginsAllowed(h, 30))
}

func TestRouter_ForwardedForHonouredBehindTrustedProxy(t *testing.T) {
	h, _ := newTestServerWithConfig(t, &config.Config{AllowedOrigins: []string{"*"}, TrustProxy: true})
	assert.Equal(t, 30, loginsAllowed(h, 30))
}
