package server

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
	"github.com/jrsteele09/acc-rfi-service/internal/utils"
)

const callbackPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%[1]s</title></head>
<body><p>%[1]s</p></body></html>
`

// OAuthCallbackHandler completes the login the consent redirect started. The
// state parameter carries the session id, so no cookie is needed.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if errorParam := query.Get("error"); errorParam != "" {
			writeCallbackPage(w, http.StatusBadRequest,
				fmt.Sprintf("Authorization failed: %s - %s", errorParam, query.Get("error_description")))
			return
		}
		if query.Get("code") == "" {
			writeCallbackPage(w, http.StatusBadRequest, "Missing authorization code")
			return
		}

		sessionID, err := s.deps.Auth.HandleCallback(r.Context(), query.Get("code"), query.Get("state"))
		if err != nil {
			status := http.StatusBadGateway
			switch {
			case errors.Is(err, apperrors.ErrStateMismatch), errors.Is(err, apperrors.ErrInvalidRequest),
				errors.Is(err, apperrors.ErrInvalidTransition):
				status = http.StatusBadRequest
			case errors.Is(err, apperrors.ErrAuthenticationRequired):
				status = http.StatusForbidden
			case errors.Is(err, apperrors.ErrStoreUnavailable):
				status = http.StatusServiceUnavailable
			}
			log.Warn().Err(err).Int("status", status).Msg("OAuth callback failed")
			writeCallbackPage(w, status, "Authentication failed: "+err.Error())
			return
		}

		log.Info().Str("session_id", utils.ShortID(sessionID)).Msg("OAuth callback complete")
		writeCallbackPage(w, http.StatusOK, "Authentication complete. You can close this tab.")
	}
}

func writeCallbackPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, callbackPage, html.EscapeString(message))
}
