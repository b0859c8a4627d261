package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/homecook/storefront/internal/auth"
	"github.com/homecook/storefront/internal/backend"
	"github.com/homecook/storefront/internal/session"
)

type contextKey string

const claimsKey contextKey = "claims"

// LoginPath is where the browser is sent when a session is missing or expired.
const LoginPath = "/login"

// Authenticate requires a valid gateway token. The session, the claims and the
// upstream identity token are put in the request context. A missing or expired
// token answers 401 with the path to come back to after signing in.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, msg := bearer(r)
			if msg != "" {
				writeAuthRequired(w, r, msg)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tokenStr)
			if err != nil {
				writeAuthRequired(w, r, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims, tokenStr)))
		})
	}
}

// Optional attaches the session when a valid token is present and otherwise
// lets the request through as anonymous.
func Optional(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr, msg := bearer(r); msg == "" {
				if claims, err := auth.ValidateToken(jwtSecret, tokenStr); err == nil {
					r = r.WithContext(withClaims(r.Context(), claims, tokenStr))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeAuthRequired(w, r, "not authenticated")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		})
	}
}

// EchoRequestID copies the ID assigned by chi's RequestID into the
// X-Request-ID response header. Mount it after middleware.RequestID.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			w.Header().Set(chimw.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func withClaims(ctx context.Context, claims *auth.Claims, tokenStr string) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	ctx = session.WithContext(ctx, session.FromClaims(claims, tokenStr))
	return backend.ContextWithToken(ctx, claims.Upstream)
}

func bearer(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "invalid authorization format"
	}
	return parts[1], ""
}

func writeAuthRequired(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":    msg,
		"redirect": LoginPath,
		"from":     r.URL.RequestURI(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
