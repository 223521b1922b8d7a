package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// ChannelHandler serves public channel profiles.
type ChannelHandler struct {
	Channels ChannelStore
}

// Profile handles GET /api/v1/channels/{username}. The viewer may be
// anonymous; when authenticated, isSubscribed is computed relative to them.
func (h ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "channel_profile")
	defer span.End()

	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is missing")
		return
	}

	viewerID := ""
	if viewer, ok := middleware.UserFromContext(ctx); ok {
		viewerID = viewer.ID
	}

	profile, err := h.Channels.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
			return
		}
		logging.FromContext(ctx).Error("channel profile query failed", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load channel profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile, "channel profile fetched successfully")
}
