package repositories

import (
	"context"

	"github.com/videotube/backend/internal/models"
)

// ChannelReader serves the channel profile aggregation: the account joined
// with its subscription edges, reduced to counts and a viewer-relative flag.
// viewerID may be empty for anonymous viewers.
type ChannelReader interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}

// HistoryReader expands a user's ordered watch history into full video
// records with embedded owner summaries.
type HistoryReader interface {
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
}
