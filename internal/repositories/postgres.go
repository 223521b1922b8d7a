package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

const userColumns = `id, username, email, fullname, password_hash, avatar, cover_image, refresh_token, watch_history, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	history := user.WatchHistory
	if history == nil {
		history = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, fullname, password_hash, avatar, cover_image, refresh_token, watch_history, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.Avatar, user.CoverImage, user.RefreshToken, history, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByIdentifier fetches a user whose username or email equals the identifier.
// Usernames are stored lowercase, so the username arm matches case-insensitively.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	return r.findOne(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE username = lower($1) OR email = $1
    `, identifier)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var user models.User
	row := conn.QueryRow(ctx, query, args...)
	err = row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Password,
		&user.Avatar, &user.CoverImage, &user.RefreshToken, &user.WatchHistory,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// UpdateDetails updates fullname and email and returns the updated record.
func (r *PostgresUserRepository) UpdateDetails(ctx context.Context, userID, fullName, email string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET fullname = $2, email = $3, updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns, userID, fullName, email)
}

// UpdateAvatar replaces the user's avatar URL and returns the updated record.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, userID, avatarURL string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET avatar = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns, userID, avatarURL)
}

// UpdateCoverImage replaces the user's cover image URL and returns the updated record.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, userID, coverURL string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET cover_image = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns, userID, coverURL)
}

func (r *PostgresUserRepository) updateReturning(ctx context.Context, query string, args ...any) (models.User, error) {
	user, err := r.findOne(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrConflict
		}
		return models.User{}, err
	}
	return user, nil
}

// SetPassword overwrites the stored password hash. Single-column update so a
// concurrent profile edit is never clobbered.
func (r *PostgresUserRepository) SetPassword(ctx context.Context, userID, passwordHash string) error {
	return r.execOne(ctx, `
        UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
    `, userID, passwordHash)
}

// SetRefreshToken overwrites the stored refresh token. The overwrite is the
// session revocation mechanism: rotation and logout both land here.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	return r.execOne(ctx, `
        UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1
    `, userID, token)
}

// AppendWatchHistory appends a video id to the user's ordered watch history.
func (r *PostgresUserRepository) AppendWatchHistory(ctx context.Context, userID, videoID string) error {
	return r.execOne(ctx, `
        UPDATE users SET watch_history = array_append(watch_history, $2), updated_at = now() WHERE id = $1
    `, userID, videoID)
}

func (r *PostgresUserRepository) execOne(ctx context.Context, query string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ChannelProfile runs the subscriber aggregation for a channel username.
// Subscriber and subscribed-to counts come from the subscriptions edge table;
// isSubscribed reports whether the viewer appears among the channel's
// subscriber edges. An empty viewerID yields isSubscribed=false.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.fullname, u.username, u.email, u.avatar, u.cover_image,
               (SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id)    AS subscribers_count,
               (SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS channels_subscribed_to_count,
               ($2 <> '' AND EXISTS (
                   SELECT 1 FROM subscriptions s
                   WHERE s.channel_id = u.id AND s.subscriber_id::text = $2
               )) AS is_subscribed
        FROM users u
        WHERE u.username = lower($1)
    `, username, viewerID)

	var profile models.ChannelProfile
	err = row.Scan(&profile.FullName, &profile.Username, &profile.Email, &profile.Avatar,
		&profile.CoverImage, &profile.SubscribersCount, &profile.ChannelsSubscribedToCount,
		&profile.IsSubscribed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// WatchHistory expands the user's watch history list into video records with
// the owner projected down to a summary. unnest WITH ORDINALITY preserves the
// original watch order; ids that no longer resolve to a video drop out.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.thumbnail, v.video_url,
               v.duration_seconds, v.views, v.created_at,
               o.fullname, o.username, o.avatar
        FROM users u
        CROSS JOIN unnest(u.watch_history) WITH ORDINALITY AS wh(video_id, position)
        JOIN videos v ON v.id::text = wh.video_id
        JOIN users o ON o.id = v.owner_id
        WHERE u.id = $1
        ORDER BY wh.position
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var history []models.WatchedVideo
	for rows.Next() {
		var item models.WatchedVideo
		err := rows.Scan(&item.ID, &item.OwnerID, &item.Title, &item.Description,
			&item.Thumbnail, &item.VideoURL, &item.Duration, &item.Views, &item.CreatedAt,
			&item.Owner.FullName, &item.Owner.Username, &item.Owner.Avatar)
		if err != nil {
			return nil, fmt.Errorf("scan watch history entry: %w", err)
		}
		history = append(history, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return history, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, thumbnail, video_url, duration_seconds, views, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.Thumbnail, video.VideoURL, video.Duration, video.Views, video.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a video by id.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, title, description, thumbnail, video_url, duration_seconds, views, created_at
        FROM videos
        WHERE id::text = $1
    `, id)

	var video models.Video
	err = row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.Thumbnail, &video.VideoURL, &video.Duration, &video.Views, &video.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// IncrementViews bumps the view counter for a video.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("increment video views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresSubscriptionRepository provides edge persistence for subscriptions.
// The account core only reads these edges; writes exist for tests and seeds.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Create inserts a subscriber->channel edge.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub models.Subscription) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3)
    `, sub.Subscriber, sub.Channel, sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ ChannelReader = (*PostgresUserRepository)(nil)
var _ HistoryReader = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
