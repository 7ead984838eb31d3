package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/events"
	"github.com/kmallmaperez/geocore/internal/repository"
	"github.com/kmallmaperez/geocore/internal/service"
	"github.com/kmallmaperez/geocore/internal/store"
)

const testSecret = "test-secret"

var (
	adminUser = domain.User{ID: 1, Name: "Ana Admin", Email: "ana@geocore.pe", Role: domain.RoleAdmin, Tables: []string{domain.AllTables}}
	fieldUser = domain.User{ID: 3, Name: "Luis Logueo", Email: "luis@geocore.pe", Role: domain.RoleUser, Tables: []string{"recuperacion"}}
)

type testEnv struct {
	router  *Router
	auth    service.AuthService
	users   service.UserService
	records *repository.MemoryRecordsRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	records := repository.NewMemoryRecordsRepository()
	usersRepo := repository.NewMemoryUsersRepository()

	summarySvc := service.NewSummaryService(records, repository.NewMemoryStatusOverridesRepository(), store.NewMemoryKV(), logger,
		service.SummaryServiceOptions{CacheTTL: time.Minute})
	recordSvc := service.NewRecordService(records, store.NewMemoryLocker(), events.NopPublisher{}, summarySvc, logger,
		service.RecordServiceOptions{LockTimeout: time.Second})
	authSvc := service.NewAuthService(usersRepo, testSecret, time.Hour, logger)
	userSvc := service.NewUserService(usersRepo, logger)
	exportSvc := service.NewExportService(records, summarySvc, logger)

	authn := NewAuthenticator(authSvc, logger)
	router := NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterAuthRoutes(NewAuthHandler(authSvc, logger), authn)
	router.RegisterUserRoutes(NewUsersHandler(userSvc, logger), authn)
	router.RegisterTableRoutes(NewTablesHandler(recordSvc, summarySvc, service.NewWebhookNotifier("", time.Second, logger), logger), authn)
	router.RegisterTransferRoutes(NewTransferHandler(recordSvc, exportSvc, logger), authn)

	return &testEnv{router: router, auth: authSvc, users: userSvc, records: records}
}

func (e *testEnv) token(t *testing.T, u domain.User) string {
	t.Helper()
	tok, err := e.auth.IssueToken(u)
	require.NoError(t, err)
	return tok
}

// do sends body (marshalled unless it is already []byte) as u; a zero user
// sends no token.
func (e *testEnv) do(t *testing.T, u domain.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if u.ID != 0 {
		req.Header.Set("Authorization", "Bearer "+e.token(t, u))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decodeEnvelope(t, rr)
	require.Equal(t, ResultSuccess, env.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Result, out))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, domain.User{}, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = env.do(t, domain.User{}, http.MethodPost, "/api/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRequire_RejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, domain.User{}, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, ResultError, decodeEnvelope(t, rr).Code)
}

func TestRequire_ExpiredTokenCode(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().Add(-2 * time.Hour)
	claims := service.Claims{
		UserID: adminUser.ID,
		Name:   adminUser.Name,
		Role:   adminUser.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, ResultTokenExpired, decodeEnvelope(t, rr).Code)
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.EnsureAdmin(context.Background(), "Ana Admin", "ana@geocore.pe", "secret-1")
	require.NoError(t, err)

	rr := env.do(t, domain.User{}, http.MethodPost, "/api/auth/login", map[string]string{"email": "ANA@geocore.pe", "password": "secret-1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	decodeResult(t, rr, &login)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "ADMIN", login.User["role"])

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		User map[string]any `json:"user"`
	}
	decodeResult(t, rr, &me)
	assert.Equal(t, "ana@geocore.pe", me.User["email"])
	assert.Equal(t, []any{"all"}, me.User["tables"])

	rr = env.do(t, domain.User{}, http.MethodPost, "/api/auth/login", map[string]string{"login": "ana@geocore.pe", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUsers_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, adminUser, http.MethodPost, "/api/users", map[string]any{
		"name": "Luis", "email": "luis@geocore.pe", "password": "pw-123456", "role": "USER", "tables": []string{"recuperacion"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, adminUser, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	decodeResult(t, rr, &list)
	require.Len(t, list, 1)
	assert.NotContains(t, list[0], "PasswordHash")

	rr = env.do(t, fieldUser, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
