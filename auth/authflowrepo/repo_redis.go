package authflowrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/acc-rfi-service/token"
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo keeps pending authorisations in the same Redis as the token
// store, so the callback may land on a different worker than the login.
type RedisRepo struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisRepo(client redis.UniversalClient, keyPrefix string) *RedisRepo {
	return &RedisRepo{client: client, keyPrefix: keyPrefix}
}

func (r *RedisRepo) key(state string) string {
	return r.keyPrefix + KeyPrefix + state
}

func (r *RedisRepo) Upsert(ctx context.Context, state string, authState *AuthFlowState, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}
	data, err := json.Marshal(authState)
	if err != nil {
		return fmt.Errorf("failed to marshal auth flow state: %w", err)
	}
	if err := r.client.Set(ctx, r.key(state), data, ttl).Err(); err != nil {
		return &token.StoreError{Op: "set", Key: r.key(state), Cause: err}
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, ErrStateNotFound
	}
	data, err := r.client.Get(ctx, r.key(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}
		return nil, &token.StoreError{Op: "get", Key: r.key(state), Cause: err}
	}

	var authState AuthFlowState
	if err := json.Unmarshal(data, &authState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auth flow state: %w", err)
	}
	return &authState, nil
}

func (r *RedisRepo) Delete(ctx context.Context, state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if err := r.client.Del(ctx, r.key(state)).Err(); err != nil {
		return &token.StoreError{Op: "del", Key: r.key(state), Cause: err}
	}
	return nil
}
