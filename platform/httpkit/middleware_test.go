package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type testJWTConfig struct{ secret string }

func (c testJWTConfig) GetJWTAccessSecret() string { return c.secret }

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthRequired(testJWTConfig{secret: testSecret}))
	r.GET("/me", func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID(), "writer": id.HasRole("pipeline:write")})
	})
	r.POST("/write", RequireRole("pipeline:write"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthRequiredAcceptsAccessToken(t *testing.T) {
	r := newAuthRouter()
	token := signToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"type":  "access",
		"roles": []string{"pipeline:write"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequiredRejectsMissingAndRefreshTokens(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	refresh := signToken(t, jwt.MapClaims{"sub": "user-1", "type": "refresh"})
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token, got %d", rec.Code)
	}
}

func TestRequireRoleForbidsReaders(t *testing.T) {
	r := newAuthRouter()
	token := signToken(t, jwt.MapClaims{"sub": "user-2", "type": "access", "roles": []string{"pipeline:read"}})

	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
