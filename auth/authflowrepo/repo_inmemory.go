package authflowrepo

import (
	"context"
	"errors"
	"sync"
	"time"
)

var _ Repo = (*InMemoryRepo)(nil)

type inMemoryEntry struct {
	state     AuthFlowState
	expiresAt time.Time
}

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	states  map[string]inMemoryEntry
	nowFunc func() time.Time
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states:  make(map[string]inMemoryEntry),
		nowFunc: time.Now,
	}
}

// SetNow replaces the clock used for expiry.
func (r *InMemoryRepo) SetNow(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowFunc = now
}

// Upsert stores or updates an auth flow state
func (r *InMemoryRepo) Upsert(_ context.Context, state string, authState *AuthFlowState, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to prevent external modifications
	r.states[state] = inMemoryEntry{
		state:     *authState,
		expiresAt: r.nowFunc().Add(ttl),
	}
	return nil
}

// Get retrieves an auth flow state by state parameter
func (r *InMemoryRepo) Get(_ context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, ErrStateNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.states[state]
	if !exists || !r.nowFunc().Before(entry.expiresAt) {
		return nil, ErrStateNotFound
	}

	authState := entry.state
	return &authState, nil
}

// Delete removes an auth flow state
func (r *InMemoryRepo) Delete(_ context.Context, state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}
