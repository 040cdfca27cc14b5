package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout = 5 * time.Second
	DefaultIOTimeout   = 3 * time.Second
)

// RedisOptions configures the connection NewRedisClient opens.
type RedisOptions struct {
	// URL in redis:// or rediss:// form.
	URL string

	DialTimeout time.Duration
	IOTimeout   time.Duration
}

// RedisRepo stores session records and config blobs in Redis so every
// backend worker sees the same session state.
type RedisRepo struct {
	client     redis.UniversalClient
	keyPrefix  string
	sessionTTL time.Duration
	nowFunc    func() time.Time
}

var _ Repo = (*RedisRepo)(nil)

// NewRedisClient parses opts.URL and checks connectivity.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.IOTimeout == 0 {
		opts.IOTimeout = DefaultIOTimeout
	}
	redisOpts.DialTimeout = opts.DialTimeout
	redisOpts.ReadTimeout = opts.IOTimeout
	redisOpts.WriteTimeout = opts.IOTimeout

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &StoreError{Op: "ping", Key: redisOpts.Addr, Cause: err}
	}
	return client, nil
}

// NewRedisRepo wraps a pre-configured client. Tests pass a miniredis backed client.
func NewRedisRepo(client redis.UniversalClient, keyPrefix string, sessionTTL time.Duration) *RedisRepo {
	return &RedisRepo{
		client:     client,
		keyPrefix:  keyPrefix,
		sessionTTL: sessionTTL,
		nowFunc:    time.Now,
	}
}

// Ping checks Redis connectivity (health check).
func (r *RedisRepo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return &StoreError{Op: "ping", Cause: err}
	}
	return nil
}

func (r *RedisRepo) Set(ctx context.Context, sessionID string, record Record) error {
	if sessionID == "" {
		return errors.New("sessionID is required")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	key := sessionKey(r.keyPrefix, sessionID)
	ttl := record.StoreTTL(r.nowFunc(), r.sessionTTL)
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (*Record, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID is required")
	}
	key := sessionKey(r.keyPrefix, sessionID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "get", Key: key, Cause: err}
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}
	return &record, nil
}

func (r *RedisRepo) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("sessionID is required")
	}
	key := sessionKey(r.keyPrefix, sessionID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return &StoreError{Op: "del", Key: key, Cause: err}
	}
	return nil
}

func (r *RedisRepo) SetConfig(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("config key is required")
	}
	fullKey := configKey(r.keyPrefix, key)
	if err := r.client.Set(ctx, fullKey, value, ttl).Err(); err != nil {
		return &StoreError{Op: "set", Key: fullKey, Cause: err}
	}
	return nil
}

func (r *RedisRepo) GetConfig(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("config key is required")
	}
	fullKey := configKey(r.keyPrefix, key)
	data, err := r.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "get", Key: fullKey, Cause: err}
	}
	return data, nil
}
