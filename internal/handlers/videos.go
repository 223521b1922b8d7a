package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// VideoHandler covers the video touchpoints of the account core: publishing
// and watch recording, which feeds the watch history aggregation.
type VideoHandler struct {
	Videos VideoStore
	Users  UserStore
	Media  MediaStore
}

// Publish handles POST /api/v1/videos (multipart). Requires authentication.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid publish form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "multipart form data is required")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	videoURL, present, err := uploadFormFile(ctx, h.Media, r, "videoFile", "videos")
	if !present {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}
	if err != nil || videoURL == "" {
		respondError(ctx, w, http.StatusBadRequest, "video upload failed")
		return
	}

	// Thumbnail is optional; a failed upload leaves it empty.
	thumbnailURL, _, _ := uploadFormFile(ctx, h.Media, r, "thumbnail", "thumbnails")

	duration, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("durationSeconds")), 10, 64)

	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		Title:       title,
		Description: strings.TrimSpace(r.FormValue("description")),
		Thumbnail:   thumbnailURL,
		VideoURL:    videoURL,
		Duration:    duration,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("failed to create video", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to publish video")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, video, "video published successfully")
}

// Watch handles POST /api/v1/videos/{id}/watch. Requires authentication.
// Appends the video to the viewer's watch history and bumps the view count.
func (h VideoHandler) Watch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videoID := strings.TrimSpace(r.PathValue("id"))
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is missing")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video does not exist")
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	if err := h.Users.AppendWatchHistory(ctx, user.ID, video.ID); err != nil {
		logger.Error("failed to append watch history", "error", err, "userId", user.ID, "videoId", video.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to record watch")
		return
	}

	if err := h.Videos.IncrementViews(ctx, video.ID); err != nil {
		// The watch is already recorded; a lost view bump is tolerable.
		logger.Warn("failed to increment views", "error", err, "videoId", video.ID)
	}

	respondJSON(ctx, w, http.StatusOK, video, "watch recorded successfully")
}
