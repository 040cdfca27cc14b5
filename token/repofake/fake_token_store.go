package tokenfakerepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/acc-rfi-service/token"
)

var _ token.Repo = (*FakeTokenStore)(nil)

type entry struct {
	data      any
	expiresAt time.Time // zero means no expiry
}

// FakeTokenStore is an in-memory token.Repo. Entries expire against an
// injectable clock and the store can be switched off to mimic an outage.
type FakeTokenStore struct {
	lock       sync.RWMutex
	entries    map[string]entry
	sessionTTL time.Duration
	now        func() time.Time
	down       error
}

func NewFakeTokenStore() *FakeTokenStore {
	return &FakeTokenStore{
		entries:    make(map[string]entry),
		sessionTTL: 14 * 24 * time.Hour,
		now:        time.Now,
	}
}

// SetNow replaces the clock used for expiry.
func (s *FakeTokenStore) SetNow(now func() time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.now = now
}

// SetUnavailable makes every call fail with a token.StoreError wrapping cause.
// Pass nil to bring the store back.
func (s *FakeTokenStore) SetUnavailable(cause error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.down = cause
}

func (s *FakeTokenStore) Set(_ context.Context, sessionID string, record token.Record) error {
	if sessionID == "" {
		return errors.New("sessionID is required")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.down != nil {
		return &token.StoreError{Op: "set", Key: sessionID, Cause: s.down}
	}

	now := s.now()
	s.entries[token.SessionKeyPrefix+sessionID] = entry{
		data:      record,
		expiresAt: now.Add(record.StoreTTL(now, s.sessionTTL)),
	}
	return nil
}

func (s *FakeTokenStore) Get(_ context.Context, sessionID string) (*token.Record, error) {
	v, err := s.get(token.SessionKeyPrefix + sessionID)
	if err != nil {
		return nil, err
	}
	record := v.(token.Record)
	return &record, nil
}

func (s *FakeTokenStore) Clear(_ context.Context, sessionID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.down != nil {
		return &token.StoreError{Op: "del", Key: sessionID, Cause: s.down}
	}
	delete(s.entries, token.SessionKeyPrefix+sessionID)
	return nil
}

func (s *FakeTokenStore) SetConfig(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.down != nil {
		return &token.StoreError{Op: "set", Key: key, Cause: s.down}
	}

	e := entry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[token.ConfigKeyPrefix+key] = e
	return nil
}

func (s *FakeTokenStore) GetConfig(_ context.Context, key string) ([]byte, error) {
	v, err := s.get(token.ConfigKeyPrefix + key)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v.([]byte)...), nil
}

// Len returns the number of live entries.
func (s *FakeTokenStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	count := 0
	now := s.now()
	for _, e := range s.entries {
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			count++
		}
	}
	return count
}

func (s *FakeTokenStore) get(key string) (any, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.down != nil {
		return nil, &token.StoreError{Op: "get", Key: key, Cause: s.down}
	}
	e, ok := s.entries[key]
	if !ok {
		return nil, token.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		return nil, token.ErrNotFound
	}
	return e.data, nil
}
