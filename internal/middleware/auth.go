package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
)

type userCtxKey struct{}

// AccessTokenCookie is the cookie session clients carry the access token in.
// Bearer tokens in the Authorization header take precedence.
const AccessTokenCookie = "accessToken"

// TokenVerifier validates stateless access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (auth.Claims, error)
}

// UserLoader resolves the account behind a verified access token.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext retrieves the authenticated user, if any.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(models.User)
	return user, ok
}

// RequireAuth rejects requests without a valid access token and loads the
// authenticated user onto the request context.
func RequireAuth(verifier TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "authentication required")
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				logging.FromContext(ctx).Warn("access token rejected", "error", err)
				unauthorized(w, "invalid or expired access token")
				return
			}

			user, err := users.FindByID(ctx, claims.Subject)
			if err != nil {
				logging.FromContext(ctx).Warn("token subject not found", "userId", claims.Subject)
				unauthorized(w, "invalid or expired access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// OptionalAuth loads the user when a valid access token is present but lets
// anonymous requests through. Used by viewer-relative read endpoints.
func OptionalAuth(verifier TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := bearerToken(r); token != "" {
				if claims, err := verifier.VerifyAccess(token); err == nil {
					if user, err := users.FindByID(ctx, claims.Subject); err == nil {
						ctx = WithUser(ctx, user)
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": http.StatusUnauthorized,
		"data":       nil,
		"message":    message,
		"success":    false,
	})
}
