package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
)

// HistoryHandler serves the authenticated user's watch history.
type HistoryHandler struct {
	History HistoryStore
}

// List handles GET /api/v1/users/me/history. Entries come back in original
// watch order, each with a single embedded owner summary.
func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "watch_history")
	defer span.End()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	history, err := h.History.WatchHistory(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("watch history query failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load watch history")
		return
	}

	if history == nil {
		history = []models.WatchedVideo{}
	}

	respondJSON(ctx, w, http.StatusOK, history, "watch history fetched successfully")
}
