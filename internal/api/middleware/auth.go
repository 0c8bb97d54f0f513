package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/subrelay/backend/internal/auth"
)

type claimsKey struct{}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// token's claims on the request context.
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if msg != "" {
				writeError(w, msg, http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// bearerToken extracts the token, or returns the message to send back.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "invalid authorization format"
	}
	return token, ""
}

// RequireRole lets the request through only when the caller holds one of roles.
// It must run after AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			switch {
			case claims == nil:
				writeError(w, "unauthorized", http.StatusUnauthorized)
			case !slices.Contains(roles, claims.Role):
				writeError(w, "forbidden", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaims returns the authenticated caller, or nil outside AuthMiddleware.
func GetClaims(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey{}).(*auth.Claims)
	return claims
}

func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
