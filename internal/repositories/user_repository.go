package repositories

import (
	"context"

	"github.com/videotube/backend/internal/models"
)

// UserRepository defines the data access contract for user accounts.
//
// The single-field mutators exist because the session and password flows
// touch exactly one column; they intentionally bypass the full-record
// Update so a concurrent profile edit cannot be clobbered.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	// FindByIdentifier resolves a user by username OR email, whichever matches.
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	UpdateDetails(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID, coverURL string) (models.User, error)
	SetPassword(ctx context.Context, userID, passwordHash string) error
	SetRefreshToken(ctx context.Context, userID, token string) error
	AppendWatchHistory(ctx context.Context, userID, videoID string) error
}
