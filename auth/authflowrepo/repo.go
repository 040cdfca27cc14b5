package authflowrepo

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

// KeyPrefix namespaces pending authorisations in a shared store.
const KeyPrefix = "oauth_state:"

// ErrStateNotFound means no login is pending for the state value.
var ErrStateNotFound = fmt.Errorf("auth flow state: %w", apperrors.ErrNotFound)

// AuthFlowState records a login that has sent the user to the authorize
// endpoint and is waiting for the callback.
type AuthFlowState struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo stores pending authorisations keyed by the OAuth state parameter.
// Entries expire after ttl so an abandoned login cannot be completed later.
type Repo interface {
	Upsert(ctx context.Context, state string, authState *AuthFlowState, ttl time.Duration) error
	Get(ctx context.Context, state string) (*AuthFlowState, error)
	Delete(ctx context.Context, state string) error
}
