package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type sessionKey struct{}

// SessionMiddleware resolves the caller's session id and echoes it back in
// the X-Session-Id response header. The id comes from the header, then the
// session_id query parameter, then the configured fixed session; otherwise a
// new one is issued.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.resolveSession(r)
		w.Header().Set(SessionHeader, sessionID)
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sessionID)))
	}
}

func (s *Server) resolveSession(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("session_id")); id != "" {
		return id
	}
	if id := s.config.GetFixedSessionID(); id != "" {
		return id
	}
	return uuid.NewString()
}

func sessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
