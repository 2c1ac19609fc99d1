package snapshot

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/modecache"
)

// RedisKeyPrefix namespaces snapshot keys.
const RedisKeyPrefix = "kdag:modelayout:"

// RedisStore keeps one key per project. The TTL is enforced by Redis.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	owned  bool
}

// NewRedisStore connects to addr (default localhost:6379) and pings it.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect redis %s", addr)
	}
	return &RedisStore{client: client, ttl: ttl, owned: true}, nil
}

// NewRedisStoreFromClient wraps an existing client. Close leaves it open.
func NewRedisStoreFromClient(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// RedisKey returns the key holding projectID's snapshot.
func RedisKey(projectID string) string {
	return RedisKeyPrefix + projectID
}

func (s *RedisStore) Load(ctx context.Context, projectID string) (modecache.Snapshot, bool, error) {
	if err := errors.ValidateID("project", projectID); err != nil {
		return nil, false, err
	}
	data, err := s.client.Get(ctx, RedisKey(projectID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", projectID, err)
	}
	return decode(projectID, data)
}

func (s *RedisStore) Save(ctx context.Context, projectID string, snap modecache.Snapshot) error {
	if err := errors.ValidateID("project", projectID); err != nil {
		return err
	}
	// Expiry is left to Redis; the record itself carries none.
	data, err := encode(projectID, snap, 0)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, RedisKey(projectID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", projectID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, projectID string) error {
	if err := errors.ValidateID("project", projectID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, RedisKey(projectID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", projectID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
