package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userContextKey contextKey = "user"

// AuthUser is the authenticated caller extracted from a Supabase access
// token.
type AuthUser struct {
	ID    string
	Email string
}

type jwtClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// withAuth is middleware that requires a valid Supabase-issued JWT. The
// token arrives as a Bearer header, or as a "token" query parameter for
// websocket upgrades where browsers cannot set headers.
func (r *Router) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		tokenString := bearerToken(req)
		if tokenString == "" {
			tokenString = req.URL.Query().Get("token")
		}
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization")
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(r.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(*jwtClaims)
		if !ok || claims.Subject == "" {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}

		user := &AuthUser{ID: claims.Subject, Email: claims.Email}
		ctx := context.WithValue(req.Context(), userContextKey, user)
		next.ServeHTTP(w, req.WithContext(ctx))
	}
}

func bearerToken(req *http.Request) string {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// userFrom returns the authenticated user attached by withAuth.
func userFrom(req *http.Request) *AuthUser {
	user, _ := req.Context().Value(userContextKey).(*AuthUser)
	return user
}
