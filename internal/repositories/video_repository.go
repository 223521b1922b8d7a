package repositories

import (
	"context"

	"github.com/videotube/backend/internal/models"
)

// VideoRepository defines data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) error
}
