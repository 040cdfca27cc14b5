package token

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

// Key namespaces in the backing store.
const (
	SessionKeyPrefix = "session:"
	ConfigKeyPrefix  = "config:"
)

// ErrNotFound means the key is absent. It is never returned for an
// unreachable store, so "never logged in" and "store down" stay distinct.
var ErrNotFound = fmt.Errorf("token store: %w", apperrors.ErrNotFound)

// Repo persists one Record per session plus arbitrary named configuration
// blobs. Implementations must be safe for concurrent use by several workers.
type Repo interface {
	Set(ctx context.Context, sessionID string, record Record) error
	Get(ctx context.Context, sessionID string) (*Record, error)
	Clear(ctx context.Context, sessionID string) error

	// SetConfig stores value under key; a zero ttl keeps it until overwritten.
	SetConfig(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetConfig(ctx context.Context, key string) ([]byte, error)
}

// StoreError reports a backing store failure. It unwraps to both the cause
// and ErrStoreUnavailable so callers can test either.
type StoreError struct {
	Op    string
	Key   string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("token store %s %s: %v", e.Op, e.Key, e.Cause)
}

func (e *StoreError) Unwrap() []error {
	return []error{apperrors.ErrStoreUnavailable, e.Cause}
}

func sessionKey(prefix, sessionID string) string {
	return prefix + SessionKeyPrefix + sessionID
}

func configKey(prefix, key string) string {
	return prefix + ConfigKeyPrefix + key
}
