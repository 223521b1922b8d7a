package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by the HTTP handlers.
type Dependencies struct {
	Users    UserStore
	Sessions SessionManager
	Media    MediaStore
	Channels ChannelStore
	History  HistoryStore
	Videos   VideoStore

	Verifier    middleware.TokenVerifier
	AuthLimiter RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := NewHealthHandler()
	authHandler := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Media: deps.Media, Limiter: deps.AuthLimiter}
	account := AccountHandler{Users: deps.Users, Media: deps.Media}
	channels := ChannelHandler{Channels: deps.Channels}
	history := HistoryHandler{History: deps.History}
	videos := VideoHandler{Videos: deps.Videos, Users: deps.Users, Media: deps.Media}

	requireAuth := middleware.RequireAuth(deps.Verifier, deps.Users)
	optionalAuth := middleware.OptionalAuth(deps.Verifier, deps.Users)

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /api/v1/auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("POST /api/v1/auth/change-password", requireAuth(http.HandlerFunc(authHandler.ChangePassword)))

	mux.Handle("GET /api/v1/users/me", requireAuth(http.HandlerFunc(account.Me)))
	mux.Handle("PATCH /api/v1/users/me", requireAuth(http.HandlerFunc(account.UpdateDetails)))
	mux.Handle("PATCH /api/v1/users/me/avatar", requireAuth(http.HandlerFunc(account.UpdateAvatar)))
	mux.Handle("PATCH /api/v1/users/me/cover", requireAuth(http.HandlerFunc(account.UpdateCoverImage)))
	mux.Handle("GET /api/v1/users/me/history", requireAuth(http.HandlerFunc(history.List)))

	mux.Handle("GET /api/v1/channels/{username}", optionalAuth(http.HandlerFunc(channels.Profile)))

	mux.Handle("POST /api/v1/videos", requireAuth(http.HandlerFunc(videos.Publish)))
	mux.Handle("POST /api/v1/videos/{id}/watch", requireAuth(http.HandlerFunc(videos.Watch)))
}
