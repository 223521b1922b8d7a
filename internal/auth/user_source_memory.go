package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/videotube/backend/internal/models"
)

var errUnknownUser = errors.New("unknown user")

// NewInMemoryUserSource returns a UserSource backed by an in-memory map.
func NewInMemoryUserSource() *InMemoryUserSource {
	return &InMemoryUserSource{users: make(map[string]models.User)}
}

// InMemoryUserSource implements UserSource for tests and local development.
type InMemoryUserSource struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// Put stores or replaces a user record.
func (s *InMemoryUserSource) Put(user models.User) {
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
}

// FindByID retrieves a user by id.
func (s *InMemoryUserSource) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	user, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return models.User{}, errUnknownUser
	}
	return user, nil
}

// SetRefreshToken updates the stored refresh token for the user.
func (s *InMemoryUserSource) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return errUnknownUser
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

// StoredToken reports the refresh token currently held for a user. Useful for tests.
func (s *InMemoryUserSource) StoredToken(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID].RefreshToken
}
