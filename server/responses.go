package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/acc-rfi-service/acc"
	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
	"github.com/jrsteele09/acc-rfi-service/internal/utils"
)

const contentTypeJSON = "application/json"

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	AuthURL          string `json:"authUrl,omitempty"`
	StatusCode       int    `json:"statusCode,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, errorResponse{Error: errorCode, ErrorDescription: description})
}

// writeServiceError maps a service error onto an HTTP response. A session
// that needs to log in gets a fresh consent URL with the 401.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	sessionID := sessionFromContext(ctx)

	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		log.Debug().Str("path", r.URL.Path).Msg("Client went away")
		return

	case errors.Is(err, apperrors.ErrAuthenticationRequired):
		resp := errorResponse{Error: "authentication_required", ErrorDescription: "log in to continue"}
		if errors.Is(err, acc.ErrCredentialsRejected) {
			if _, invErr := s.deps.Auth.Invalidate(ctx, sessionID); invErr != nil {
				log.Err(invErr).Str("session_id", utils.ShortID(sessionID)).Msg("Failed to drop rejected credentials")
			}
		}
		authURL, urlErr := s.deps.Auth.AuthURL(ctx, sessionID)
		if urlErr != nil {
			log.Err(urlErr).Str("session_id", utils.ShortID(sessionID)).Msg("Failed to create login url")
		}
		resp.AuthURL = authURL
		writeJSON(w, http.StatusUnauthorized, resp)
		return

	case errors.Is(err, apperrors.ErrStateMismatch):
		writeJSONError(w, "state_mismatch", err.Error(), http.StatusBadRequest)
		return

	case errors.Is(err, apperrors.ErrInvalidRequest):
		writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return

	case errors.Is(err, apperrors.ErrStoreUnavailable):
		log.Err(err).Str("path", r.URL.Path).Msg("Backing store unavailable")
		writeJSONError(w, "store_unavailable", "session store unavailable", http.StatusServiceUnavailable)
		return
	}

	if code, ok := acc.StatusCode(err); ok {
		status := code
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		log.Warn().Err(err).Int("upstream_status", code).Str("path", r.URL.Path).Msg("Platform request failed")
		writeJSON(w, status, errorResponse{Error: "remote_error", ErrorDescription: err.Error(), StatusCode: code})
		return
	}

	log.Err(err).Str("path", r.URL.Path).Msg("Request failed")
	writeJSONError(w, "internal_error", "internal server error", http.StatusInternalServerError)
}

// decodeJSON reads a JSON request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "malformed request body: %v", err)
	}
	return nil
}
