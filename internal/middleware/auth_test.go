package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/internal/service"
)

func signTestToken(t *testing.T, secret, role string) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID:   "user-1",
		Role:     role,
		FullName: "Thandi Nkosi",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "classtrack",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthRouter(svc *service.IdentityService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(svc)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		ident := c.MustGet(ContextIdentityKey).(models.Identity)
		c.String(http.StatusOK, "%s:%s", ident.UserID, ident.Role)
	})
	router.GET("/probe", handlers...)
	return router
}

func TestAuthMiddlewareBearerToken(t *testing.T) {
	svc := service.NewIdentityService(service.IdentityConfig{JWTSecret: "secret", Issuer: "classtrack"})
	router := newAuthRouter(svc)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "secret", models.RoleAdmin))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if got := recorder.Body.String(); got != "user-1:ADMIN" {
		t.Fatalf("unexpected identity: %s", got)
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	svc := service.NewIdentityService(service.IdentityConfig{JWTSecret: "secret"})
	router := newAuthRouter(svc)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	svc := service.NewIdentityService(service.IdentityConfig{JWTSecret: "secret"})
	router := newAuthRouter(svc)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	svc := service.NewIdentityService(service.IdentityConfig{JWTSecret: "secret"})
	router := newAuthRouter(svc)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "wrong-secret", models.RoleAdmin))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestAuthMiddlewareAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("machine-key"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}
	svc := service.NewIdentityService(service.IdentityConfig{APIKeyHash: string(hash)})
	router := newAuthRouter(svc)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "machine-key")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if got := recorder.Body.String(); !strings.HasSuffix(got, ":"+models.RoleService) {
		t.Fatalf("unexpected identity: %s", got)
	}

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	svc := service.NewIdentityService(service.IdentityConfig{JWTSecret: "secret", Issuer: "classtrack"})
	router := newAuthRouter(svc, RequireRoles(models.RoleAdmin, models.RoleCoordinator))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "secret", models.RoleAgent))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "secret", models.RoleCoordinator))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
