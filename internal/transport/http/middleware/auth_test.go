package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/usecase"
)

var testSecret = []byte(strings.Repeat("s", 64))

const testIssuer = "genzf.test"

func init() {
	gin.SetMode(gin.TestMode)
}

func signTestToken(t *testing.T, principal domain.Principal, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := usecase.AccessTokenClaims{
		Scope: domain.BuildScope(principal),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.Subject,
			Issuer:    testIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type probe struct {
	principal   domain.Principal
	attributed  bool
	authorities []string
	subjectHdr  string
}

func newFilterEngine(t *testing.T, opts AuthFilterOptions, captured *probe) *gin.Engine {
	t.Helper()
	if opts.Secret == nil {
		opts.Secret = testSecret
	}
	if opts.Issuer == "" {
		opts.Issuer = testIssuer
	}
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}

	engine := gin.New()
	engine.Use(AuthenticationFilter(opts))
	engine.GET("/resource", func(c *gin.Context) {
		captured.principal, captured.attributed = GetPrincipal(c)
		captured.authorities = GetAuthorities(c)
		captured.subjectHdr = c.Request.Header.Get(SubjectHeader)
		c.Status(http.StatusOK)
	})
	return engine
}

func doRequest(engine *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestFilterAttributesValidToken(t *testing.T) {
	var captured probe
	engine := newFilterEngine(t, AuthFilterOptions{}, &captured)

	token := signTestToken(t, domain.Principal{
		Subject:     "alice",
		Roles:       []string{"USER"},
		Permissions: []string{"PERM_READ"},
	}, time.Hour)

	rec := doRequest(engine, "/resource", "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !captured.attributed {
		t.Fatal("expected principal")
	}
	if captured.principal.Subject != "alice" {
		t.Fatalf("subject = %q", captured.principal.Subject)
	}
	want := []string{"ROLE_USER", "PERM_READ"}
	if len(captured.authorities) != len(want) {
		t.Fatalf("authorities = %v, want %v", captured.authorities, want)
	}
	for i, authority := range want {
		if captured.authorities[i] != authority {
			t.Fatalf("authorities = %v, want %v", captured.authorities, want)
		}
	}
	if captured.subjectHdr != "alice" {
		t.Fatalf("forwarded subject = %q", captured.subjectHdr)
	}
}

func TestFilterForwardsUnauthenticatedWithoutToken(t *testing.T) {
	var captured probe
	engine := newFilterEngine(t, AuthFilterOptions{}, &captured)

	rec := doRequest(engine, "/resource", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; the filter must not reject", rec.Code)
	}
	if captured.attributed {
		t.Fatal("principal attributed without a token")
	}
}

func TestFilterForwardsUnauthenticatedOnBadToken(t *testing.T) {
	cases := map[string]string{
		"garbage":          "Bearer not-a-jwt",
		"wrong scheme":     "Basic dXNlcjpwYXNz",
		"empty bearer":     "Bearer   ",
		"expired token":    "Bearer " + signTestToken(t, domain.Principal{Subject: "alice"}, -time.Hour),
		"wrong signature:": "Bearer " + func() string { s := signTestToken(t, domain.Principal{Subject: "alice"}, time.Hour); return s[:len(s)-6] + "AAAAAA" }(),
	}

	for name, authorization := range cases {
		t.Run(name, func(t *testing.T) {
			var captured probe
			engine := newFilterEngine(t, AuthFilterOptions{}, &captured)

			rec := doRequest(engine, "/resource", authorization)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d; the filter must fail open", rec.Code)
			}
			if captured.attributed {
				t.Fatal("principal attributed from invalid token")
			}
		})
	}
}

func TestFilterStripsSpoofedIdentityHeaders(t *testing.T) {
	var captured probe
	engine := newFilterEngine(t, AuthFilterOptions{}, &captured)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set(SubjectHeader, "mallory")
	req.Header.Set(AuthoritiesHeader, "ROLE_ADMIN")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if captured.subjectHdr != "" {
		t.Fatalf("spoofed subject header survived: %q", captured.subjectHdr)
	}
}

func TestFilterBypassesPublicPrefixes(t *testing.T) {
	var captured probe
	opts := AuthFilterOptions{PublicPrefixes: []string{"/resource"}}
	engine := newFilterEngine(t, opts, &captured)

	// Even a valid token is ignored on public paths.
	token := signTestToken(t, domain.Principal{Subject: "alice"}, time.Hour)
	rec := doRequest(engine, "/resource", "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if captured.attributed {
		t.Fatal("public path should skip attribution")
	}
}

type staticDenylist map[string]bool

func (d staticDenylist) Contains(jti string) bool { return d[jti] }

func TestFilterChecksDenylist(t *testing.T) {
	token := signTestToken(t, domain.Principal{Subject: "alice"}, time.Hour)

	claims := &usecase.AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("parse: %v", err)
	}

	var captured probe
	engine := newFilterEngine(t, AuthFilterOptions{
		Denylist: staticDenylist{claims.ID: true},
	}, &captured)

	rec := doRequest(engine, "/resource", "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; denylisted tokens still fail open", rec.Code)
	}
	if captured.attributed {
		t.Fatal("denylisted token must not attribute a principal")
	}
}

func TestRequireAuthority(t *testing.T) {
	engine := gin.New()
	engine.Use(AuthenticationFilter(AuthFilterOptions{
		Secret: testSecret,
		Issuer: testIssuer,
		Logger: zaptest.NewLogger(t),
	}))
	engine.GET("/admin", RequireAuthority("ROLE_ADMIN"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// No token: 401.
	if rec := doRequest(engine, "/admin", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	// Authenticated without the authority: 403.
	userToken := signTestToken(t, domain.Principal{Subject: "bob", Roles: []string{"USER"}}, time.Hour)
	if rec := doRequest(engine, "/admin", "Bearer "+userToken); rec.Code != http.StatusForbidden {
		t.Fatalf("user status = %d, want 403", rec.Code)
	}

	// Holder of the authority passes.
	adminToken := signTestToken(t, domain.Principal{Subject: "root", Roles: []string{"ADMIN"}}, time.Hour)
	if rec := doRequest(engine, "/admin", "Bearer "+adminToken); rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rec.Code)
	}
}
