package token

import (
	"time"

	"github.com/rs/zerolog"
)

// Record is the complete credential snapshot held for one session. It is
// always written whole, so concurrent writers replace each other and never
// interleave fields.
type Record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// Expired reports whether the access token is unusable at now, treating a
// token inside margin of its expiry as already expired.
func (r *Record) Expired(now time.Time, margin time.Duration) bool {
	if r.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(r.ExpiresAt)
}

// CanRefresh reports whether the record can be renewed without the user.
func (r *Record) CanRefresh() bool {
	return r.RefreshToken != ""
}

// StoreTTL is how long the record should live in the backing store. A
// refreshable record outlives its access token by sessionTTL; anything else
// is useless once the access token expires.
func (r *Record) StoreTTL(now time.Time, sessionTTL time.Duration) time.Duration {
	if r.CanRefresh() && sessionTTL > 0 {
		return sessionTTL
	}
	if r.ExpiresAt.IsZero() {
		return sessionTTL
	}
	ttl := r.ExpiresAt.Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// MarshalZerologObject logs a record without its secrets.
func (r Record) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("has_access_token", r.AccessToken != "").
		Bool("has_refresh_token", r.RefreshToken != "").
		Time("expires_at", r.ExpiresAt).
		Str("user_id", r.UserID).
		Str("scope", r.Scope)
}

// Inherit fills fields a renewed record did not receive from prev. A refresh
// response may omit the refresh token, and the user id is never re-issued.
func (r Record) Inherit(prev *Record) Record {
	if prev == nil {
		return r
	}
	if r.RefreshToken == "" {
		r.RefreshToken = prev.RefreshToken
	}
	if r.UserID == "" {
		r.UserID = prev.UserID
	}
	if r.Scope == "" {
		r.Scope = prev.Scope
	}
	return r
}
