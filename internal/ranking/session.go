package ranking

import (
	"errors"
	"sync"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
)

// Session cache sizing.
const (
	DefaultSessionTTL  = 6 * time.Hour
	DefaultMaxSessions = 512
)

// ErrSessionExpired is returned when a pagination button refers to a session
// that expired or was evicted. Callers surface it as a "data expired" reply.
var ErrSessionExpired = errors.New("ranking: session expired")

// Session holds the query parameters behind one posted leaderboard message.
// Rows are not stored; every page recomputes them from the store.
type Session struct {
	GroupID   int64
	MessageID int64
	Window    domain.TimeWindow
	Direction Direction
	Title     string
	BestWin   string // preformatted best-win line
	ImageMode bool   // photo caption pages instead of text pages
}

type sessionEntry struct {
	session   Session
	createdAt time.Time
}

// SessionCache keeps pagination sessions keyed by (group id, message id),
// bounded by TTL and capacity with oldest-first eviction.
type SessionCache struct {
	mu      sync.Mutex
	entries map[[2]int64]sessionEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// SessionCacheOption configures a SessionCache.
type SessionCacheOption func(*SessionCache)

// WithSessionTTL overrides the session lifetime.
func WithSessionTTL(ttl time.Duration) SessionCacheOption {
	return func(c *SessionCache) { c.ttl = ttl }
}

// WithSessionCapacity overrides the maximum number of live sessions.
func WithSessionCapacity(n int) SessionCacheOption {
	return func(c *SessionCache) { c.maxSize = n }
}

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionCacheOption {
	return func(c *SessionCache) { c.now = now }
}

// NewSessionCache creates a SessionCache.
func NewSessionCache(opts ...SessionCacheOption) *SessionCache {
	c := &SessionCache{
		entries: make(map[[2]int64]sessionEntry),
		ttl:     DefaultSessionTTL,
		maxSize: DefaultMaxSessions,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put stores a session, evicting the oldest entry when full.
func (c *SessionCache) Put(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := [2]int64{s.GroupID, s.MessageID}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = sessionEntry{session: s, createdAt: c.now()}
}

// Get retrieves the session for (group, message). Returns ErrSessionExpired
// when it is missing or past its TTL.
func (c *SessionCache) Get(groupID, messageID int64) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := [2]int64{groupID, messageID}
	e, ok := c.entries[key]
	if !ok {
		return Session{}, ErrSessionExpired
	}
	if c.now().Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		return Session{}, ErrSessionExpired
	}
	return e.session, nil
}

// Len returns the number of live sessions.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SessionCache) evictOldestLocked() {
	var (
		oldestKey [2]int64
		oldestAt  time.Time
		found     bool
	)
	for key, e := range c.entries {
		if !found || e.createdAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, e.createdAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
