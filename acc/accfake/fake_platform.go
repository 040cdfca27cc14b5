// Package accfake serves a small in-memory imitation of the platform's
// authentication, RFI and object storage endpoints for tests.
package accfake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/acc-rfi-service/acc"
)

const (
	ValidCode    = "good-code"
	AccessToken  = "access-token"
	RefreshToken = "refresh-token"
)

// Server is an httptest server plus the state behind it. Fields may be set
// before requests are made; use Lock/Unlock when mutating during a test.
type Server struct {
	*httptest.Server
	sync.Mutex

	ProjectID string
	UserID    string

	// IssueRefreshToken controls whether token responses carry a refresh token.
	IssueRefreshToken bool
	ExpiresIn         int
	TokenStatus       int
	// Scope, when set, is reported as the granted scope of issued tokens.
	Scope string
	// TokenDelay is applied to every token endpoint request.
	TokenDelay time.Duration

	AttributesStatus int
	Attributes       []acc.AttributeDefinition
	RFITypes         []acc.RFIType
	Attachments      map[string][]acc.Attachment
	SignedURLs       map[string]string

	// RFIStatus forces a status for GetRFI of a given id.
	RFIStatus map[string]int
	// RFIDelay holds back the GetRFI response for a given id.
	RFIDelay map[string]time.Duration
	// SearchStatus forces a status for every search.
	SearchStatus int
	// Throttle answers this many requests with 429 before serving normally.
	Throttle int
	// Delay is applied to every RFI API request.
	Delay time.Duration
	// MaxPage caps the number of results one search returns.
	MaxPage int

	Searches      []acc.SearchRequest
	TokenRequests []url.Values
	UserMeCalls   int
	RFIGets       int

	rfis  []acc.RFI
	issue int
}

func New(projectID string) *Server {
	s := &Server{
		ProjectID:         projectID,
		UserID:            "user-1",
		IssueRefreshToken: true,
		ExpiresIn:         3600,
		Attachments:       map[string][]acc.Attachment{},
		SignedURLs:        map[string]string{},
		RFIStatus:         map[string]int{},
		RFIDelay:          map[string]time.Duration{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /authentication/v2/token", s.handleToken)
	base := "/construction/rfis/v3/projects/" + projectID
	mux.HandleFunc("POST "+base+"/search:rfis", s.authorized(s.handleSearch))
	mux.HandleFunc("GET "+base+"/users/me", s.authorized(s.handleUserMe))
	mux.HandleFunc("GET "+base+"/attributes", s.authorized(s.handleAttributes))
	mux.HandleFunc("GET "+base+"/rfi-types", s.authorized(s.handleRFITypes))
	mux.HandleFunc("GET "+base+"/rfis/{id}", s.authorized(s.handleGetRFI))
	mux.HandleFunc("GET "+base+"/rfis/{id}/attachments", s.authorized(s.handleAttachments))
	mux.HandleFunc("GET /oss/v2/buckets/{bucket}/objects/{object}/signeds3download", s.authorized(s.handleSigned))
	s.Server = httptest.NewServer(mux)
	return s
}

// AddRFI appends a record; search results follow insertion order.
func (s *Server) AddRFI(rfi acc.RFI) {
	s.Lock()
	defer s.Unlock()
	s.rfis = append(s.rfis, rfi)
}

// SearchCount is the number of search:rfis calls served.
func (s *Server) SearchCount() int {
	s.Lock()
	defer s.Unlock()
	return len(s.Searches)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, status int) {
	s.writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		delay := s.Delay
		throttled := s.Throttle > 0
		if throttled {
			s.Throttle--
		}
		s.Unlock()

		if !sleep(r, delay) {
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "+AccessToken) {
			s.fail(w, http.StatusUnauthorized)
			return
		}
		if throttled {
			s.fail(w, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// sleep waits for d unless the request goes away first.
func sleep(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-r.Context().Done():
		return false
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, http.StatusBadRequest)
		return
	}
	s.Lock()
	delay := s.TokenDelay
	s.Unlock()
	if !sleep(r, delay) {
		return
	}

	s.Lock()
	defer s.Unlock()
	s.TokenRequests = append(s.TokenRequests, r.PostForm)

	if s.TokenStatus != 0 {
		s.writeJSON(w, s.TokenStatus, map[string]string{"error": "server_error"})
		return
	}
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") != ValidCode {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	case "refresh_token":
		if !strings.HasPrefix(r.PostForm.Get("refresh_token"), RefreshToken) {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	default:
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	s.issue++
	resp := map[string]any{
		"access_token": fmt.Sprintf("%s-%d", AccessToken, s.issue),
		"token_type":   "Bearer",
		"expires_in":   s.ExpiresIn,
	}
	if s.Scope != "" {
		resp["scope"] = s.Scope
	}
	if s.IssueRefreshToken {
		resp["refresh_token"] = fmt.Sprintf("%s-%d", RefreshToken, s.issue)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req acc.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest)
		return
	}
	s.Lock()
	defer s.Unlock()
	s.Searches = append(s.Searches, req)
	if s.SearchStatus != 0 {
		s.fail(w, s.SearchStatus)
		return
	}

	matched := make([]acc.RFI, 0, len(s.rfis))
	for _, rfi := range s.rfis {
		if matches(rfi, req) {
			matched = append(matched, project(rfi, req.Fields))
		}
	}
	page := []acc.RFI{}
	if req.Offset < len(matched) {
		size := req.Limit
		if s.MaxPage > 0 && (size <= 0 || size > s.MaxPage) {
			size = s.MaxPage
		}
		end := len(matched)
		if size > 0 && req.Offset+size < end {
			end = req.Offset + size
		}
		page = matched[req.Offset:end]
	}
	s.writeJSON(w, http.StatusOK, acc.SearchResponse{
		Pagination: acc.Pagination{Limit: req.Limit, Offset: req.Offset, TotalResults: len(matched)},
		Results:    page,
	})
}

func matches(rfi acc.RFI, req acc.SearchRequest) bool {
	if req.Search != "" {
		title, _ := rfi[acc.FieldTitle].(string)
		if !strings.Contains(strings.ToLower(title), strings.ToLower(req.Search)) {
			return false
		}
	}
	if len(req.Filter.Status) > 0 {
		status, _ := rfi[acc.FieldStatus].(string)
		found := false
		for _, s := range req.Filter.Status {
			found = found || s == status
		}
		if !found {
			return false
		}
	}
	return inRange(rfi[acc.FieldCreatedAt], req.Filter.CreatedAt) && inRange(rfi[acc.FieldUpdatedAt], req.Filter.UpdatedAt)
}

// inRange evaluates the "start..end" range syntax; either side may be empty.
func inRange(value any, rng string) bool {
	if rng == "" {
		return true
	}
	raw, _ := value.(string)
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	start, end, _ := strings.Cut(rng, "..")
	if start != "" {
		if from, err := time.Parse(time.RFC3339, start); err == nil && t.Before(from) {
			return false
		}
	}
	if end != "" {
		if to, err := time.Parse(time.RFC3339, end); err == nil && t.After(to) {
			return false
		}
	}
	return true
}

func project(rfi acc.RFI, fields []string) acc.RFI {
	if len(fields) == 0 {
		return rfi
	}
	out := acc.RFI{acc.FieldID: rfi[acc.FieldID]}
	for _, f := range fields {
		if v, ok := rfi[f]; ok {
			out[f] = v
		}
	}
	return out
}

func (s *Server) handleGetRFI(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.Lock()
	delay := s.RFIDelay[id]
	s.Unlock()
	if !sleep(r, delay) {
		return
	}

	s.Lock()
	defer s.Unlock()
	s.RFIGets++
	if status := s.RFIStatus[id]; status != 0 {
		s.fail(w, status)
		return
	}
	for _, rfi := range s.rfis {
		if rfi.ID() == id {
			s.writeJSON(w, http.StatusOK, rfi)
			return
		}
	}
	s.fail(w, http.StatusNotFound)
}

func (s *Server) handleUserMe(w http.ResponseWriter, _ *http.Request) {
	s.Lock()
	defer s.Unlock()
	s.UserMeCalls++
	s.writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{"id": s.UserID}})
}

func (s *Server) handleAttributes(w http.ResponseWriter, _ *http.Request) {
	s.Lock()
	defer s.Unlock()
	if s.AttributesStatus != 0 {
		s.fail(w, s.AttributesStatus)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": s.Attributes})
}

func (s *Server) handleRFITypes(w http.ResponseWriter, _ *http.Request) {
	s.Lock()
	defer s.Unlock()
	s.writeJSON(w, http.StatusOK, map[string]any{"results": s.RFITypes})
}

func (s *Server) handleAttachments(w http.ResponseWriter, r *http.Request) {
	s.Lock()
	defer s.Unlock()
	s.writeJSON(w, http.StatusOK, map[string]any{"results": s.Attachments[r.PathValue("id")]})
}

func (s *Server) handleSigned(w http.ResponseWriter, r *http.Request) {
	s.Lock()
	defer s.Unlock()
	key := r.PathValue("bucket") + "/" + r.PathValue("object")
	signed, ok := s.SignedURLs[key]
	if !ok {
		s.fail(w, http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "complete", "url": signed})
}
