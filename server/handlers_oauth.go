package server

import (
	"net/http"

	"github.com/jrsteele09/acc-rfi-service/auth"
)

type loginResponse struct {
	auth.LoginResult
	SessionID string `json:"sessionId"`
}

// LoginHandler logs the session in silently when it can, otherwise returns
// the consent URL.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := sessionFromContext(r.Context())
		result, err := s.deps.Auth.Login(r.Context(), sessionID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{LoginResult: result, SessionID: sessionID})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.deps.Auth.Logout(r.Context(), sessionFromContext(r.Context()))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out", "state": state})
	}
}

func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.deps.Auth.State(r.Context(), sessionFromContext(r.Context()))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"logged_in": state == auth.StateAuthenticated,
			"state":     state.String(),
		})
	}
}
