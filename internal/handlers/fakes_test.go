package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// fakeStore is an in-memory implementation of the handler store interfaces,
// mirroring the semantics of the PostgreSQL repositories.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]models.User
	videos map[string]models.Video
	subs   []models.Subscription
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]models.User),
		videos: make(map[string]models.Video),
	}
}

func (s *fakeStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == strings.ToLower(identifier) || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeStore) UpdateDetails(_ context.Context, userID, fullName, email string) (models.User, error) {
	return s.mutate(userID, func(u *models.User) {
		u.FullName = fullName
		u.Email = email
	})
}

func (s *fakeStore) UpdateAvatar(_ context.Context, userID, avatarURL string) (models.User, error) {
	return s.mutate(userID, func(u *models.User) { u.Avatar = avatarURL })
}

func (s *fakeStore) UpdateCoverImage(_ context.Context, userID, coverURL string) (models.User, error) {
	return s.mutate(userID, func(u *models.User) { u.CoverImage = coverURL })
}

func (s *fakeStore) SetPassword(_ context.Context, userID, passwordHash string) error {
	_, err := s.mutate(userID, func(u *models.User) { u.Password = passwordHash })
	return err
}

func (s *fakeStore) SetRefreshToken(_ context.Context, userID, token string) error {
	_, err := s.mutate(userID, func(u *models.User) { u.RefreshToken = token })
	return err
}

func (s *fakeStore) AppendWatchHistory(_ context.Context, userID, videoID string) error {
	_, err := s.mutate(userID, func(u *models.User) {
		u.WatchHistory = append(u.WatchHistory, videoID)
	})
	return err
}

func (s *fakeStore) mutate(userID string, fn func(*models.User)) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	fn(&user)
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return user, nil
}

func (s *fakeStore) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var channel models.User
	found := false
	for _, user := range s.users {
		if user.Username == strings.ToLower(username) {
			channel = user
			found = true
			break
		}
	}
	if !found {
		return models.ChannelProfile{}, repositories.ErrNotFound
	}

	profile := models.ChannelProfile{
		FullName:   channel.FullName,
		Username:   channel.Username,
		Email:      channel.Email,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
	}
	for _, sub := range s.subs {
		if sub.Channel == channel.ID {
			profile.SubscribersCount++
			if viewerID != "" && sub.Subscriber == viewerID {
				profile.IsSubscribed = true
			}
		}
		if sub.Subscriber == channel.ID {
			profile.ChannelsSubscribedToCount++
		}
	}
	return profile, nil
}

func (s *fakeStore) WatchHistory(_ context.Context, userID string) ([]models.WatchedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}

	var history []models.WatchedVideo
	for _, videoID := range user.WatchHistory {
		video, ok := s.videos[videoID]
		if !ok {
			continue
		}
		owner := s.users[video.OwnerID]
		history = append(history, models.WatchedVideo{
			Video: video,
			Owner: models.OwnerSummary{
				FullName: owner.FullName,
				Username: owner.Username,
				Avatar:   owner.Avatar,
			},
		})
	}
	return history, nil
}

func (s *fakeStore) CreateVideo(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *fakeStore) FindVideoByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

// fakeVideoStore adapts fakeStore to the VideoStore interface without
// colliding with the UserStore method set.
type fakeVideoStore struct {
	store *fakeStore
}

func (f fakeVideoStore) Create(ctx context.Context, video models.Video) error {
	return f.store.CreateVideo(ctx, video)
}

func (f fakeVideoStore) FindByID(ctx context.Context, id string) (models.Video, error) {
	return f.store.FindVideoByID(ctx, id)
}

func (f fakeVideoStore) IncrementViews(ctx context.Context, id string) error {
	return f.store.IncrementViews(ctx, id)
}

// fakeMedia implements MediaStore. Like the real store it consumes the local
// temp file regardless of outcome.
type fakeMedia struct {
	mu      sync.Mutex
	uploads []string
	fail    map[string]bool
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{fail: make(map[string]bool)}
}

func (m *fakeMedia) UploadFile(_ context.Context, localPath, prefix string) (string, error) {
	defer os.Remove(localPath)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[prefix] {
		return "", fmt.Errorf("upload rejected for %s", prefix)
	}
	url := fmt.Sprintf("https://media.test/%s/%d", prefix, len(m.uploads))
	m.uploads = append(m.uploads, url)
	return url, nil
}

func newSessionManager(store *fakeStore) *auth.Manager {
	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)
	return auth.NewManager(issuer, store)
}

// multipartBody builds a multipart request body from form fields and
// single-byte-blob file parts.
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for field, filename := range files {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create file part %s: %v", field, err)
		}
		if _, err := io.Copy(part, strings.NewReader("fake-binary-data")); err != nil {
			t.Fatalf("write file part %s: %v", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return &buf, writer.FormDataContentType()
}

type decodedEnvelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, body io.Reader) decodedEnvelope {
	t.Helper()
	var env decodedEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}
