package auth

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// SessionSnapshot is the cached view of a user session. Its presence in
// the store is the single source of truth for "this session is live";
// deleting it revokes every outstanding token for the user.
type SessionSnapshot struct {
	UserID    string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Role      UserRole `json:"role,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Verified  bool     `json:"is_verified,omitempty"`
}

// Identity adapts the snapshot to the Identity interface.
func (s *SessionSnapshot) Identity() Identity {
	return userIdentity{
		id:    s.UserID,
		name:  s.Name,
		email: s.Email,
		role:  string(s.Role),
	}
}

// EncodeSnapshot serializes a snapshot for cache storage.
func EncodeSnapshot(s *SessionSnapshot) (string, error) {
	if s == nil || s.UserID == "" {
		return "", goerrors.New("snapshot requires a user id", goerrors.CategoryBadInput)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode session snapshot")
	}

	return string(raw), nil
}

// DecodeSnapshot deserializes a cached snapshot.
func DecodeSnapshot(raw string) (*SessionSnapshot, error) {
	s := &SessionSnapshot{}
	if err := json.Unmarshal([]byte(raw), s); err != nil {
		return nil, goerrors.Wrap(err, ErrUnableToDecodeSession.Category, ErrUnableToDecodeSession.Message).
			WithTextCode(ErrUnableToDecodeSession.TextCode)
	}

	if s.UserID == "" {
		return nil, ErrUnableToDecodeSession
	}

	return s, nil
}

// RedisSessionStore keeps snapshots in Redis under a prefixed user id key.
// Entries carry the refresh TTL so idle sessions expire on their own.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger Logger
}

// NewRedisSessionStore creates a store on an existing Redis client. The
// TTL should match the refresh token TTL; zero disables expiry.
func NewRedisSessionStore(client *redis.Client, cfg Config) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: cfg.GetSessionKeyPrefix(),
		ttl:    cfg.GetRefreshTokenTTL(),
		logger: defLogger{},
	}
}

func (r *RedisSessionStore) WithLogger(logger Logger) *RedisSessionStore {
	r.logger = logger
	return r
}

func (r *RedisSessionStore) key(userID string) string {
	return r.prefix + userID
}

// Get returns the snapshot for the user id, or nil when the session has
// been revoked or expired.
func (r *RedisSessionStore) Get(ctx context.Context, userID string) (*SessionSnapshot, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Result()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session cache read failed")
	}

	return DecodeSnapshot(raw)
}

// Set writes or overwrites the snapshot. Last writer wins; concurrent
// refreshes for the same user converge on an equivalent snapshot.
func (r *RedisSessionStore) Set(ctx context.Context, snapshot *SessionSnapshot) error {
	raw, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(snapshot.UserID), raw, r.ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session cache write failed")
	}

	return nil
}

// Delete removes the snapshot. This is the revocation primitive.
func (r *RedisSessionStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session cache delete failed")
	}
	return nil
}

var _ SessionStore = (*RedisSessionStore)(nil)

// MemorySessionStore is an in-process SessionStore for tests and
// single-node embedding. Entries expire lazily on read.
type MemorySessionStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	raw       string
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-memory store. Zero TTL disables expiry.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
	}
}

func (m *MemorySessionStore) Get(ctx context.Context, userID string) (*SessionSnapshot, error) {
	m.mu.RLock()
	entry, ok := m.entries[userID]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, userID)
		m.mu.Unlock()
		return nil, nil
	}

	return DecodeSnapshot(entry.raw)
}

func (m *MemorySessionStore) Set(ctx context.Context, snapshot *SessionSnapshot) error {
	raw, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	entry := memoryEntry{raw: raw}
	if m.ttl > 0 {
		entry.expiresAt = time.Now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[snapshot.UserID] = entry
	m.mu.Unlock()

	return nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()
	return nil
}

var _ SessionStore = (*MemorySessionStore)(nil)
