package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/application"
	"github.com/08star/my-auth-app/internal/application/dto"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence/memory"
	"github.com/08star/my-auth-app/internal/interfaces/http/handlers"
	"github.com/08star/my-auth-app/pkg/logger"
)

const testAdminKey = "admin-secret"

type testServer struct {
	t       *testing.T
	handler nethttp.Handler
	logs    *logger.SQLiteWriter
}

func newTestServer(t *testing.T, adminKey string, opts ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{Issuer: "test", Secret: "secret", AccessTokenTTL: time.Hour}
	cfg.Auth = config.AuthConfig{
		Argon2Memory:      1024,
		Argon2Iterations:  1,
		Argon2Parallelism: 1,
		Argon2SaltLength:  16,
		Argon2KeyLength:   32,
		MinPasswordLength: 1,
	}
	cfg.Security.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Security.AdminAPIKey = adminKey
	for _, opt := range opts {
		opt(cfg)
	}

	logCfg := logger.DefaultConfig()
	logCfg.EnableConsole = false
	logCfg.SQLiteDBPath = filepath.Join(t.TempDir(), "logs.db")
	logs, err := logger.NewSQLiteWriter(logCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logs.Close() })
	log, err := logger.New(logCfg, logs)
	require.NoError(t, err)

	repos := persistence.NewMemory(memory.NewStore())
	sessions := memory.NewSessionRegistry(0)
	t.Cleanup(func() { _ = sessions.Close() })

	svc, err := application.NewServices(repos, sessions, application.NewDependencies(cfg), cfg, log)
	require.NoError(t, err)
	router, err := NewRouter(cfg, &RouterDeps{
		Accounts:     svc.Accounts,
		Devices:      svc.Devices,
		Logger:       log,
		LogStore:     logs,
		HealthChecks: map[string]handlers.HealthChecker{"database": repos},
	})
	require.NoError(t, err)

	return &testServer{t: t, handler: router.Engine(), logs: logs}
}

func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doRaw(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(username string) (string, string) {
	s.t.Helper()
	rec := s.do(nethttp.MethodPost, "/auth/register", "", dto.RegisterRequest{Username: username, Password: "pw-" + username})
	require.Equal(s.t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	var reg dto.RegisterResponse
	decode(s.t, rec, &reg)

	rec = s.do(nethttp.MethodPost, "/auth/login", "", dto.LoginRequest{Username: username, Password: "pw-" + username})
	require.Equal(s.t, nethttp.StatusOK, rec.Code, rec.Body.String())
	var login dto.LoginResponse
	decode(s.t, rec, &login)
	assert.Equal(s.t, "Bearer", login.TokenType)

	return reg.UserID.String(), login.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	decode(t, rec, &body)
	assert.NotEmpty(t, body.Description)
	return body.Error
}

func TestAliceDeviceFlow(t *testing.T) {
	s := newTestServer(t, "")
	_, token := s.signup("alice")

	rec := s.do(nethttp.MethodPost, "/devices/register", token, dto.DeviceRequest{DeviceID: "A1"})
	require.Equal(t, nethttp.StatusCreated, rec.Code)
	var mut dto.DeviceMutationResponse
	decode(t, rec, &mut)
	assert.Equal(t, dto.DeviceMutationResponse{Msg: dto.MsgDeviceRequested, DeviceID: "A1", Verified: false}, mut)

	rec = s.do(nethttp.MethodPost, "/devices/register", token, dto.DeviceRequest{DeviceID: "A1"})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	decode(t, rec, &mut)
	assert.Equal(t, dto.MsgDeviceRegistered, mut.Msg)

	rec = s.do(nethttp.MethodPost, "/devices/verify", token, dto.DeviceRequest{DeviceID: "A1"})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	decode(t, rec, &mut)
	assert.Equal(t, dto.DeviceMutationResponse{Msg: dto.MsgDeviceVerified, DeviceID: "A1", Verified: true}, mut)

	rec = s.do(nethttp.MethodPost, "/devices/register", token, dto.DeviceRequest{DeviceID: "A2"})
	require.Equal(t, nethttp.StatusCreated, rec.Code)

	rec = s.do(nethttp.MethodPost, "/devices/verify", token, dto.DeviceRequest{DeviceID: "A2"})
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = s.do(nethttp.MethodGet, "/devices", token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var list []dto.DeviceResponse
	decode(t, rec, &list)
	assert.Equal(t, []dto.DeviceResponse{
		{DeviceID: "A1", Verified: false},
		{DeviceID: "A2", Verified: true},
	}, list)

	rec = s.do(nethttp.MethodGet, "/devices/status?device_id=A1", token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var status dto.DeviceResponse
	decode(t, rec, &status)
	assert.Equal(t, dto.DeviceResponse{DeviceID: "A1", Verified: false}, status)
}

func TestDeviceRouteErrors(t *testing.T) {
	s := newTestServer(t, "")
	_, token := s.signup("bob")

	rec := s.do(nethttp.MethodGet, "/devices", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))

	rec = s.do(nethttp.MethodGet, "/devices", "not-a-jwt", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = s.do(nethttp.MethodPost, "/devices/register", token, dto.DeviceRequest{DeviceID: "   "})
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))

	rec = s.do(nethttp.MethodPost, "/devices/verify", token, nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = s.do(nethttp.MethodGet, "/devices/status", token, nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	for _, path := range []string{"/devices/register", "/devices/verify"} {
		rec = s.doRaw(nethttp.MethodPost, path, token, `{"device_id": 123}`)
		assert.Equal(t, nethttp.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "invalid request body", path)

		rec = s.doRaw(nethttp.MethodPost, path, token, "")
		assert.Equal(t, nethttp.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "device_id is required", path)
	}

	rec = s.do(nethttp.MethodGet, "/devices/status?device_id=ghost", token, nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Equal(t, "device_not_found", errorCode(t, rec))

	rec = s.do(nethttp.MethodGet, "/devices", token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAccountRoutes(t *testing.T) {
	s := newTestServer(t, "")
	_, token := s.signup("carol")

	rec := s.do(nethttp.MethodPost, "/auth/register", "", dto.RegisterRequest{Username: "carol", Password: "x"})
	assert.Equal(t, nethttp.StatusConflict, rec.Code)
	assert.Equal(t, "user_exists", errorCode(t, rec))

	rec = s.do(nethttp.MethodPost, "/auth/register", "", dto.RegisterRequest{Username: "dave"})
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = s.do(nethttp.MethodPost, "/auth/login", "", dto.LoginRequest{Username: "carol", Password: "wrong"})
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))

	rec = s.do(nethttp.MethodPost, "/auth/login", "", dto.LoginRequest{Username: "nobody", Password: "wrong"})
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))

	rec = s.do(nethttp.MethodGet, "/auth/me", token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var me dto.UserResponse
	decode(t, rec, &me)
	assert.Equal(t, "carol", me.Username)
	assert.True(t, me.Active)

	rec = s.do(nethttp.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = s.do(nethttp.MethodGet, "/devices", token, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(nethttp.MethodGet, "/admin/users", "", nil, "X-Admin-Key", "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, testAdminKey)
	userID, token := s.signup("erin")
	admin := []string{"X-Admin-Key", testAdminKey}

	rec := s.do(nethttp.MethodGet, "/admin/users", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = s.do(nethttp.MethodGet, "/admin/users", "", nil, "X-Admin-Key", "wrong")
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = s.do(nethttp.MethodGet, "/admin/users", "", nil, admin...)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var users []dto.UserResponse
	decode(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "erin", users[0].Username)

	rec = s.do(nethttp.MethodPost, "/admin/users/"+userID+"/devices/verify", "", dto.DeviceRequest{DeviceID: "E1"}, admin...)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = s.do(nethttp.MethodGet, "/admin/users/"+userID+"/devices", "", nil, admin...)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"device_id":"E1","verified":true}]`, rec.Body.String())

	req := httptest.NewRequest(nethttp.MethodPost, "/admin/users/"+userID+"/devices/verify", bytes.NewBufferString(`{"device_id":`))
	req.Header.Set("X-Admin-Key", testAdminKey)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = s.do(nethttp.MethodGet, "/admin/users/not-a-uuid/devices", "", nil, admin...)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = s.do(nethttp.MethodGet, "/admin/users/00000000-0000-0000-0000-000000000001/devices", "", nil, admin...)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", errorCode(t, rec))

	rec = s.do(nethttp.MethodPost, "/admin/users/"+userID+"/disable", "", nil, admin...)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var disabled dto.UserResponse
	decode(t, rec, &disabled)
	assert.False(t, disabled.Active)

	// sessions end with the account
	rec = s.do(nethttp.MethodGet, "/devices", token, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = s.do(nethttp.MethodPost, "/auth/login", "", dto.LoginRequest{Username: "erin", Password: "pw-erin"})
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)
	assert.Equal(t, "account_disabled", errorCode(t, rec))

	rec = s.do(nethttp.MethodPost, "/admin/users/"+userID+"/enable", "", nil, admin...)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = s.do(nethttp.MethodPost, "/auth/login", "", dto.LoginRequest{Username: "erin", Password: "pw-erin"})
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	require.NoError(t, s.logs.Flush(context.Background()))
	rec = s.do(nethttp.MethodGet, "/admin/logs?device_id=E1", "", nil, admin...)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var logs struct {
		Logs  []logger.LogEntry `json:"logs"`
		Total int64             `json:"total"`
	}
	decode(t, rec, &logs)
	assert.NotZero(t, logs.Total)
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(nethttp.MethodGet, "/health", "", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","checks":{"database":"healthy"}}`, rec.Body.String())

	assert.Equal(t, nethttp.StatusOK, s.do(nethttp.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, nethttp.StatusOK, s.do(nethttp.MethodGet, "/live", "", nil).Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(nethttp.MethodGet, "/live", "", nil, "X-Request-ID", "req-42")
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = s.do(nethttp.MethodGet, "/live", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestLoginLimitIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t, "", func(cfg *config.Config) {
		cfg.Security.RateLimitEnabled = true
		cfg.Security.RateLimitRPS = 100
		cfg.Security.RateLimitBurst = 200
	})

	limited := 0
	for i := 0; i < 20; i++ {
		rec := s.do(nethttp.MethodPost, "/auth/login", "",
			dto.LoginRequest{Username: "nobody", Password: "wrong"},
			"X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		if rec.Code == nethttp.StatusTooManyRequests {
			assert.Equal(t, "too_many_requests", errorCode(t, rec))
			limited++
		}
	}
	assert.Equal(t, 15, limited)
}

func TestNewRouterRejectsBadTrustedProxy(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.TrustedProxies = []string{"not-an-ip"}

	_, err := NewRouter(cfg, &RouterDeps{Logger: logger.Nop()})
	assert.Error(t, err)
}

func TestDeviceOutcomeIsLogged(t *testing.T) {
	s := newTestServer(t, testAdminKey)
	_, token := s.signup("frank")

	rec := s.do(nethttp.MethodPost, "/devices/register", token, dto.DeviceRequest{DeviceID: "F1"})
	require.Equal(t, nethttp.StatusCreated, rec.Code)
	rec = s.do(nethttp.MethodPost, "/devices/verify", token, dto.DeviceRequest{DeviceID: "F1"})
	require.Equal(t, nethttp.StatusOK, rec.Code)

	require.NoError(t, s.logs.Flush(context.Background()))
	entries, _, err := s.logs.Query(context.Background(), logger.QueryFilter{DeviceID: "F1", Search: "HTTP request"})
	require.NoError(t, err)

	byPath := map[string]map[string]interface{}{}
	for _, e := range entries {
		if e.Message == "HTTP request" {
			byPath[e.Fields["path"].(string)] = e.Fields
		}
	}
	require.Contains(t, byPath, "/devices/register")
	require.Contains(t, byPath, "/devices/verify")
	assert.Equal(t, true, byPath["/devices/register"]["created"])
	assert.Equal(t, false, byPath["/devices/register"]["verified"])
	assert.Equal(t, true, byPath["/devices/verify"]["verified"])
	assert.NotContains(t, byPath["/devices/verify"], "created")
}
