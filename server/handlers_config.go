package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
	"github.com/jrsteele09/acc-rfi-service/token"
)

const fieldsConfigPrefix = "fields:"

// fieldsConfig is the column layout the browser saves. Entries are kept
// verbatim; the service only checks the envelope.
type fieldsConfig struct {
	Fields []json.RawMessage `json:"fields"`
}

func fieldsConfigKey(sessionID string) string {
	return fieldsConfigPrefix + sessionID
}

func (s *Server) GetFieldsConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.deps.Tokens.GetConfig(r.Context(), fieldsConfigKey(sessionFromContext(r.Context())))
		if errors.Is(err, token.ErrNotFound) {
			writeJSON(w, http.StatusOK, fieldsConfig{Fields: []json.RawMessage{}})
			return
		}
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		var cfg fieldsConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func (s *Server) SaveFieldsConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg fieldsConfig
		if err := decodeJSON(r, &cfg); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if cfg.Fields == nil {
			s.writeServiceError(w, r, apperrors.Wrapf(apperrors.ErrInvalidRequest, "fields is required"))
			return
		}
		data, err := json.Marshal(cfg)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if err := s.deps.Tokens.SetConfig(r.Context(), fieldsConfigKey(sessionFromContext(r.Context())), data, 0); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "count": len(cfg.Fields)})
	}
}
