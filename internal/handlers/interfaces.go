package handlers

import (
	"context"

	"github.com/videotube/backend/internal/models"
)

// UserStore captures the persistence operations required by the account flows.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	UpdateDetails(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID, coverURL string) (models.User, error)
	SetPassword(ctx context.Context, userID, passwordHash string) error
	AppendWatchHistory(ctx context.Context, userID, videoID string) error
}

// SessionManager issues, rotates, and revokes token pairs.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.User, models.TokenPair, error)
	Revoke(ctx context.Context, userID string) error
}

// MediaStore uploads a local temp file to the media host and returns its
// public URL. The temp file is consumed by the call regardless of outcome.
type MediaStore interface {
	UploadFile(ctx context.Context, localPath, prefix string) (string, error)
}

// ChannelStore serves the channel profile aggregation.
type ChannelStore interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}

// HistoryStore serves the expanded, ordered watch history.
type HistoryStore interface {
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
}

// VideoStore captures persistence for videos touched by the account flows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) error
}
