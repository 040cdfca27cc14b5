package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/acc-rfi-service/acc"
	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
	"github.com/jrsteele09/acc-rfi-service/rfis"
)

// searchRequest accepts the browser's camelCase keys and the snake_case keys
// older clients send.
type searchRequest struct {
	SearchText    string   `json:"searchText"`
	SearchTextAlt string   `json:"search_text"`
	ActivityAfter string   `json:"activityAfter"`
	AfterAlt      string   `json:"activity_after"`
	Limit         int      `json:"limit"`
	Fields        []string `json:"fields"`
}

type searchResponse struct {
	Items    []acc.RFI `json:"items"`
	Count    int       `json:"count"`
	Warnings int       `json:"warnings"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SearchRFIsHandler runs the aggregated RFI search for the session.
func (s *Server) SearchRFIsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		after, err := rfis.ParseActivityAfter(firstNonEmpty(req.ActivityAfter, req.AfterAlt), s.location)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		result, err := s.deps.Aggregator.Search(r.Context(), sessionFromContext(r.Context()), rfis.Filter{
			SearchText: firstNonEmpty(req.SearchText, req.SearchTextAlt),
			After:      after,
			Limit:      req.Limit,
			Fields:     req.Fields,
		})
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{
			Items:    result.Records,
			Count:    len(result.Records),
			Warnings: len(result.Warnings),
		})
	}
}

func (s *Server) RFIAttributesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defs, err := s.deps.Aggregator.AttributeDefinitions(r.Context(), sessionFromContext(r.Context()))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attributes": defs})
	}
}

func (s *Server) RFITypesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := s.deps.Clients.ForSession(sessionFromContext(r.Context())).ListRFITypes(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"types": types})
	}
}

// RFIURLHandler returns the browser link for an RFI. It makes no remote call.
func (s *Server) RFIURLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.PathValue("id"))
		if id == "" {
			s.writeServiceError(w, r, apperrors.Wrapf(apperrors.ErrInvalidRequest, "rfi id is required"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": acc.WebURL(s.config.GetRFIWebURL(), id)})
	}
}

func (s *Server) RFIAttachmentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := s.deps.Clients.ForSession(sessionFromContext(r.Context()))
		attachments, err := client.GetAttachments(r.Context(), strings.TrimSpace(r.PathValue("id")))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attachments": attachments})
	}
}

type signedDownloadRequest struct {
	StorageURN  string `json:"storageUrn"`
	DisplayName string `json:"displayName,omitempty"`
}

// SignedDownloadHandler turns an attachment's storage URN into a temporary
// download link.
func (s *Server) SignedDownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signedDownloadRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if req.StorageURN == "" {
			s.writeServiceError(w, r, apperrors.Wrapf(apperrors.ErrInvalidRequest, "storageUrn is required"))
			return
		}
		signed, err := s.deps.Clients.ForSession(sessionFromContext(r.Context())).SignedDownloadURL(r.Context(), req.StorageURN)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": signed, "displayName": req.DisplayName})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Health != nil {
			if err := s.deps.Health.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
