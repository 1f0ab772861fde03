package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/infra/config"
	"github.com/qnit18/genzf/internal/infra/security"
	"github.com/qnit18/genzf/internal/repository"
	"github.com/qnit18/genzf/internal/transport/http/handlers"
	"github.com/qnit18/genzf/internal/transport/http/routes"
	"github.com/qnit18/genzf/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers struct {
	byUsername map[string]*domain.User
}

func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range s.byUsername {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := s.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubUsers) Create(_ context.Context, user domain.User) error {
	s.byUsername[user.Username] = &user
	return nil
}

type stubRevocations struct {
	revoked map[string]time.Time
}

func (s *stubRevocations) Record(_ context.Context, jti string, expiresAt time.Time) error {
	s.revoked[jti] = expiresAt
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := s.revoked[jti]
	return ok, nil
}

const testPassword = "q8#Vx2!pLm9Zw4Ry"

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := &config.AppConfig{
		JWT: config.JWTSettings{
			Secret:         base64.StdEncoding.EncodeToString([]byte(strings.Repeat("s", 64))),
			Issuer:         "genzf.test",
			AccessTokenTTL: time.Hour,
		},
	}

	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	users := &stubUsers{byUsername: map[string]*domain.User{
		"alice": {
			ID:           "u-1",
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: hash,
			Roles:        []string{"USER"},
			Permissions:  []string{"PERM_READ"},
		},
	}}

	log := zaptest.NewLogger(t)
	tokens, err := usecase.NewTokenService(cfg, users, &stubRevocations{revoked: make(map[string]time.Time)}, log)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	userService := usecase.NewUserService(users, security.NewPasswordPolicy(), log)

	return routes.NewAuthServiceRouter(routes.AuthServiceDeps{
		Auth:   handlers.NewAuthHandler(tokens, userService, log),
		Users:  handlers.NewUserHandler(userService, log),
		Health: handlers.NewHealthHandler(nil),
		Logger: log,
	})
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func obtainToken(t *testing.T, router *gin.Engine) string {
	t.Helper()

	rec := postJSON(router, "/auth/token", handlers.AuthenticationRequest{Username: "alice", Password: testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("token status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp handlers.AuthenticationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Authenticated || resp.Token == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	return resp.Token
}

func TestTokenEndpoint(t *testing.T) {
	router := newAuthRouter(t)
	obtainToken(t, router)
}

func TestTokenEndpointWrongPassword(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/token", handlers.AuthenticationRequest{Username: "alice", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTokenEndpointUnknownUser(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/token", handlers.AuthenticationRequest{Username: "mallory", Password: "whatever"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestTokenEndpointMalformedBody(t *testing.T) {
	router := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIntrospectEndpoint(t *testing.T) {
	router := newAuthRouter(t)
	token := obtainToken(t, router)

	rec := postJSON(router, "/auth/introspect", handlers.IntrospectRequest{Token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp handlers.IntrospectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid {
		t.Fatal("expected valid token")
	}

	rec = postJSON(router, "/auth/introspect", handlers.IntrospectRequest{Token: "garbage"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; invalid tokens still answer 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Valid {
		t.Fatal("expected invalid token")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	router := newAuthRouter(t)
	token := obtainToken(t, router)

	rec := postJSON(router, "/auth/logout", handlers.LogoutRequest{Token: token})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", rec.Code)
	}

	var resp handlers.IntrospectResponse
	introspect := postJSON(router, "/auth/introspect", handlers.IntrospectRequest{Token: token})
	if err := json.Unmarshal(introspect.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Valid {
		t.Fatal("revoked token still introspects as valid")
	}

	// Logout is idempotent.
	if rec := postJSON(router, "/auth/logout", handlers.LogoutRequest{Token: token}); rec.Code != http.StatusNoContent {
		t.Fatalf("repeat logout status = %d, want 204", rec.Code)
	}
}

func TestLogoutRejectsGarbage(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/logout", handlers.LogoutRequest{Token: "not-a-token"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/register", handlers.RegisterRequest{
		Username: "bob",
		Password: "n3w!Acc0unt#2025x",
		Email:    "bob@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp handlers.UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Username != "bob" || resp.ID == "" {
		t.Fatalf("unexpected user: %+v", resp)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != usecase.DefaultRole {
		t.Fatalf("roles = %v", resp.Roles)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/register", handlers.RegisterRequest{Username: "bob", Password: "password"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/register", handlers.RegisterRequest{
		Username: "alice",
		Password: "n3w!Acc0unt#2025x",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestGetUserEndpoint(t *testing.T) {
	router := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/users/u-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp handlers.UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "u-1" || resp.Username != "alice" {
		t.Fatalf("unexpected user: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/users/ghost", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newAuthRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestReadinessFailureIs503(t *testing.T) {
	health := handlers.NewHealthHandler(map[string]handlers.ReadinessCheck{
		"postgres": func(context.Context) error { return fmt.Errorf("dial refused") },
	})

	engine := gin.New()
	engine.GET("/readyz", health.Ready)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
