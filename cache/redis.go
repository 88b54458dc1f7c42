package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	goextract "github.com/soundprediction/go-extract"
)

// encodeEntryJSON JSON-encodes a CacheEntry for storage as a Redis string
// value, per SPEC_FULL.md's RedisStore wire format (same key/value shape
// as BoltStore, JSON-encoded rather than gob-encoded).
func encodeEntryJSON(entry goextract.CacheEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return data, nil
}

func decodeEntryJSON(data []byte) (goextract.CacheEntry, error) {
	var entry goextract.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return goextract.CacheEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry, nil
}

// RedisStore is a results cache backed by Redis, suited to multiple
// cooperating processes sharing one cache.
type RedisStore struct {
	Client *redis.Client
	// TTL, when positive, expires cache entries after the given duration.
	// Zero means entries never expire.
	TTL time.Duration
}

// NewRedisStore connects to a Redis server and returns a RedisStore.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{Client: client}, nil
}

// Get implements goextract.CacheStore.
func (r *RedisStore) Get(ctx context.Context, documentID string) (goextract.CacheEntry, bool, error) {
	data, err := r.Client.Get(ctx, documentID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return goextract.CacheEntry{}, false, nil
		}
		return goextract.CacheEntry{}, false, fmt.Errorf("get cache entry: %w", err)
	}

	entry, err := decodeEntryJSON(data)
	if err != nil {
		return goextract.CacheEntry{}, false, err
	}
	return entry, true, nil
}

// Put implements goextract.CacheStore.
func (r *RedisStore) Put(ctx context.Context, documentID string, entry goextract.CacheEntry) error {
	data, err := encodeEntryJSON(entry)
	if err != nil {
		return err
	}
	if err := r.Client.Set(ctx, documentID, data, r.TTL).Err(); err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}
