package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// CookieName holds the session token.
const CookieName = "token"

type claimsKey struct{}

// Middleware puts valid claims from the token cookie, or a Bearer header,
// into the request context. Missing or invalid tokens are ignored; use
// RequireUser to enforce.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tokenStr string
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			tokenStr = c.Value
		}
		if tokenStr == "" {
			if h, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				tokenStr = h
			}
		}
		if tokenStr == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.ValidateToken(tokenStr)
		if err != nil {
			ClearTokenCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// WithClaims returns ctx carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims in ctx, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// RequireUser answers 401 with a reload hint when no user is signed in.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":  "sign in required",
				"kind":   "authentication",
				"reload": true,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetTokenCookie writes the token as an HttpOnly cookie.
func (s *Service) SetTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.expiry.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.Secure,
	})
}

// ClearTokenCookie removes the token cookie.
func ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
