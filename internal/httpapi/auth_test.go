package httpapi

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "test-secret"

func signTestToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newAuthTestRouter() *Router {
	return &Router{
		cfg:    RouterConfig{JWTSecret: testJWTSecret},
		logger: log.New(io.Discard, "", 0),
	}
}

func TestWithAuth(t *testing.T) {
	r := newAuthTestRouter()

	var gotUser *AuthUser
	handler := r.withAuth(func(w http.ResponseWriter, req *http.Request) {
		gotUser = userFrom(req)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/captures", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/captures", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/captures", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "other-secret", "user-1"))
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid bearer token", func(t *testing.T) {
		gotUser = nil
		req := httptest.NewRequest(http.MethodGet, "/api/captures", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, testJWTSecret, "user-1"))
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotUser == nil || gotUser.ID != "user-1" {
			t.Errorf("user = %+v, want ID user-1", gotUser)
		}
		if gotUser.Email != "user@example.com" {
			t.Errorf("email = %q, want user@example.com", gotUser.Email)
		}
	})

	t.Run("token via query param", func(t *testing.T) {
		gotUser = nil
		req := httptest.NewRequest(http.MethodGet, "/ws/capture?token="+signTestToken(t, testJWTSecret, "user-2"), nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotUser == nil || gotUser.ID != "user-2" {
			t.Errorf("user = %+v, want ID user-2", gotUser)
		}
	})

	t.Run("token without subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte(testJWTSecret))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/captures", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
