// Package redisstore backs the session and verification-code stores with a
// shared Redis instance. All state written here carries an explicit TTL;
// nothing in Redis outlives the credentials it authorizes.
package redisstore

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	"github.com/tourgether/tripauth"
)

const (
	sessionKeyPrefix = "SESSION:"
	ownerKeyPrefix   = "RT:"
)

const (
	refreshField = "refresh"
	ownerField   = "owner"
)

// Store implements tripauth.SessionStore and tripauth.CodeStore over a
// go-redis client.
type Store struct {
	client redis.UniversalClient
	logger tripauth.Logger
}

var (
	_ tripauth.SessionStore = (*Store)(nil)
	_ tripauth.CodeStore    = (*Store)(nil)
)

// Option customizes the store.
type Option func(*Store)

// WithLogger overrides the default logger.
func WithLogger(logger tripauth.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a store over the given client. The client's lifecycle belongs to
// the caller.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Put writes the session record and repoints the owner index in one
// transactional pipeline. When the owner already held a session, the old
// record is deleted first, so an owner never resolves to a dead session and
// the newest login wins.
func (s *Store) Put(ctx context.Context, sessionID, refreshToken, ownerEmail string, ttl time.Duration) error {
	if sessionID == "" || refreshToken == "" || ownerEmail == "" {
		return errors.New("session id, refresh token, and owner are required", errors.CategoryBadInput)
	}

	previous, err := s.client.Get(ctx, ownerKeyPrefix+ownerEmail).Result()
	if err != nil && err != redis.Nil {
		return wrapStoreErr(err, "failed to read owner index")
	}

	pipe := s.client.TxPipeline()
	if previous != "" && previous != sessionID {
		pipe.Del(ctx, sessionKeyPrefix+previous)
	}
	pipe.HSet(ctx, sessionKeyPrefix+sessionID, refreshField, refreshToken, ownerField, ownerEmail)
	pipe.Expire(ctx, sessionKeyPrefix+sessionID, ttl)
	pipe.Set(ctx, ownerKeyPrefix+ownerEmail, sessionID, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStoreErr(err, "failed to persist session")
	}
	return nil
}

func (s *Store) GetRefresh(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.HGet(ctx, sessionKeyPrefix+sessionID, refreshField).Result()
	if err == redis.Nil {
		return "", tripauth.ErrSessionNotFound
	}
	if err != nil {
		return "", wrapStoreErr(err, "failed to read session")
	}
	return val, nil
}

func (s *Store) Owner(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.HGet(ctx, sessionKeyPrefix+sessionID, ownerField).Result()
	if err == redis.Nil {
		return "", tripauth.ErrSessionNotFound
	}
	if err != nil {
		return "", wrapStoreErr(err, "failed to read session owner")
	}
	return val, nil
}

func (s *Store) SessionIDByOwner(ctx context.Context, ownerEmail string) (string, error) {
	val, err := s.client.Get(ctx, ownerKeyPrefix+ownerEmail).Result()
	if err == redis.Nil {
		return "", tripauth.ErrSessionNotFound
	}
	if err != nil {
		return "", wrapStoreErr(err, "failed to read owner index")
	}
	return val, nil
}

// DeleteSession removes the session record and, when the owner index still
// points at this session, the index entry as well. Deleting a session that no
// longer exists is not an error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	owner, err := s.client.HGet(ctx, sessionKeyPrefix+sessionID, ownerField).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return wrapStoreErr(err, "failed to resolve session owner")
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	if owner != "" {
		if current, err := s.client.Get(ctx, ownerKeyPrefix+owner).Result(); err == nil && current == sessionID {
			pipe.Del(ctx, ownerKeyPrefix+owner)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStoreErr(err, "failed to delete session")
	}
	return nil
}

func (s *Store) DeleteByOwner(ctx context.Context, ownerEmail string) error {
	sessionID, err := s.client.Get(ctx, ownerKeyPrefix+ownerEmail).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return wrapStoreErr(err, "failed to read owner index")
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	pipe.Del(ctx, ownerKeyPrefix+ownerEmail)

	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStoreErr(err, "failed to delete owner sessions")
	}
	return nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrapStoreErr(err, "failed to set key")
	}
	return nil
}

// SetNX is a single atomic set-if-absent with expiry. It is the rate-limit
// primitive: two racing callers get exactly one true.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, wrapStoreErr(err, "failed to reserve key")
	}
	return ok, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", errors.New("key not found", errors.CategoryNotFound).
			WithMetadata(map[string]any{"key": key})
	}
	if err != nil {
		return "", wrapStoreErr(err, "failed to read key")
	}
	return val, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return wrapStoreErr(err, "failed to delete keys")
	}
	return nil
}

// TTL returns the remaining lifetime of a key, zero when the key is missing
// or carries no expiry.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, wrapStoreErr(err, "failed to read ttl")
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func wrapStoreErr(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryInternal, msg)
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}
