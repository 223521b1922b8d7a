package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/videotube/backend/internal/models"
)

type profileCacheEntry struct {
	profile models.ChannelProfile
	expires time.Time
}

type profileCacheKey struct {
	username string
	viewerID string
}

// CachingChannelReader wraps another ChannelReader with a TTL-based in-memory
// cache. Entries are keyed per viewer because isSubscribed is viewer-relative.
type CachingChannelReader struct {
	base ChannelReader
	ttl  time.Duration

	mu    sync.RWMutex
	items map[profileCacheKey]profileCacheEntry
}

// NewCachingChannelReader returns a ChannelReader that caches profile lookups
// for the provided TTL.
func NewCachingChannelReader(base ChannelReader, ttl time.Duration) *CachingChannelReader {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachingChannelReader{
		base:  base,
		ttl:   ttl,
		items: make(map[profileCacheKey]profileCacheEntry),
	}
}

// ChannelProfile returns a cached profile when fresh, otherwise it delegates
// to the underlying reader and stores the result. Misses (ErrNotFound) are
// not cached so a channel becomes visible as soon as it registers.
func (c *CachingChannelReader) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	key := profileCacheKey{username: username, viewerID: viewerID}
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.profile, nil
	}

	profile, err := c.base.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		return models.ChannelProfile{}, err
	}

	c.mu.Lock()
	c.items[key] = profileCacheEntry{profile: profile, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return profile, nil
}

var _ ChannelReader = (*CachingChannelReader)(nil)
