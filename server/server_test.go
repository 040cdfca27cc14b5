package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/acc-rfi-service/acc"
	"github.com/jrsteele09/acc-rfi-service/acc/accfake"
	"github.com/jrsteele09/acc-rfi-service/auth"
	"github.com/jrsteele09/acc-rfi-service/auth/authflowrepo"
	"github.com/jrsteele09/acc-rfi-service/internal/config"
	"github.com/jrsteele09/acc-rfi-service/rfis"
	"github.com/jrsteele09/acc-rfi-service/server"
	"github.com/jrsteele09/acc-rfi-service/token"
	tokenfakerepo "github.com/jrsteele09/acc-rfi-service/token/repofake"
)

const (
	testProjectID = "project-1"
	testSessionID = "s1"
	testOrigin    = "http://localhost:5173"
)

type testFixture struct {
	acc    *accfake.Server
	tokens *tokenfakerepo.FakeTokenStore
	server *server.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	fake := accfake.New(testProjectID)
	t.Cleanup(fake.Close)

	v := viper.New()
	v.Set("APS_CLIENT_ID", "client")
	v.Set("APS_CLIENT_SECRET", "secret")
	v.Set("APS_REDIRECT_URI", "http://localhost:8000/callback")
	v.Set("ACC_PROJECT_ID", testProjectID)
	v.Set("REDIS_URL", "redis://localhost:6379/0")
	v.Set("ENV", "TEST")
	cfg := config.NewFromViper(v)
	require.NoError(t, cfg.Validate())

	tokens := tokenfakerepo.NewFakeTokenStore()
	platform, err := acc.NewPlatform(acc.Options{
		BaseURL:      fake.URL,
		ProjectID:    testProjectID,
		ClientID:     cfg.GetClientID(),
		ClientSecret: cfg.GetClientSecret(),
		RedirectURI:  cfg.GetRedirectURI(),
		Scopes:       cfg.GetScopes(),
		Timeout:      2 * time.Second,
	}, tokens)
	require.NoError(t, err)

	authService, err := auth.NewService(tokens, authflowrepo.NewInMemoryRepo(), platform)
	require.NoError(t, err)

	srv, err := server.New(cfg, server.Dependencies{
		Auth:       authService,
		Aggregator: rfis.NewAggregator(platform),
		Clients:    platform,
		Tokens:     tokens,
	})
	require.NoError(t, err)

	return &testFixture{acc: fake, tokens: tokens, server: srv}
}

func (f *testFixture) login(t *testing.T, sessionID string) {
	t.Helper()
	require.NoError(t, f.tokens.Set(context.Background(), sessionID, token.Record{
		AccessToken:  accfake.AccessToken,
		RefreshToken: accfake.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}))
}

func (f *testFixture) do(t *testing.T, method, target, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(server.SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLoginCallbackStatus(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodPost, server.RouteLogin, testSessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, testSessionID, rec.Header().Get(server.SessionHeader))
	body := decode(t, rec)
	authURL, err := url.Parse(body["authUrl"].(string))
	require.NoError(t, err)
	require.Equal(t, testSessionID, authURL.Query().Get("state"))
	require.Equal(t, "awaiting_callback", body["state"])

	rec = f.do(t, http.MethodGet, server.RouteAuthStatus, testSessionID, "")
	require.Equal(t, false, decode(t, rec)["logged_in"])

	rec = f.do(t, http.MethodGet, server.RouteCallback+"?code="+accfake.ValidCode+"&state="+testSessionID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Authentication complete")

	rec = f.do(t, http.MethodGet, server.RouteAuthStatus, testSessionID, "")
	status := decode(t, rec)
	require.Equal(t, true, status["logged_in"])
	require.Equal(t, "authenticated", status["state"])

	rec = f.do(t, http.MethodPost, server.RouteLogin, testSessionID, "")
	require.Equal(t, "ok", decode(t, rec)["status"])

	rec = f.do(t, http.MethodPost, server.RouteLogout, testSessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "anonymous", decode(t, rec)["state"])
	rec = f.do(t, http.MethodGet, server.RouteAuthStatus, testSessionID, "")
	require.Equal(t, false, decode(t, rec)["logged_in"])
}

func TestLoginIssuesSessionID(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodPost, server.RouteLogin, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(server.SessionHeader)
	require.NotEmpty(t, sessionID)
	require.Equal(t, sessionID, decode(t, rec)["sessionId"])
}

func TestCallbackErrors(t *testing.T) {
	f := setupTestFixture(t)
	f.do(t, http.MethodPost, server.RouteLogin, testSessionID, "")

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "provider error", query: "?error=access_denied&state=s1", status: http.StatusBadRequest},
		{name: "missing code", query: "?state=s1", status: http.StatusBadRequest},
		{name: "unknown state", query: "?code=" + accfake.ValidCode + "&state=other", status: http.StatusBadRequest},
		{name: "rejected code", query: "?code=bad&state=s1", status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, server.RouteCallback+tt.query, "", "")
			require.Equal(t, tt.status, rec.Code)
			require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		})
	}
}

func TestSearchRFIs(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, testSessionID)
	f.acc.AddRFI(acc.RFI{"id": "R-1", "title": "Duct clash", "status": "open", "createdAt": "2025-03-02T00:00:00Z", "updatedAt": "2025-03-02T00:00:00Z"})
	f.acc.AddRFI(acc.RFI{"id": "R-2", "title": "Old one", "status": "open", "createdAt": "2025-01-02T00:00:00Z", "updatedAt": "2025-01-02T00:00:00Z"})

	rec := f.do(t, http.MethodPost, server.RouteRFIs, testSessionID,
		`{"searchText":"","activityAfter":"2025-03-01T09:00","limit":50,"fields":["id","title"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Items []map[string]any `json:"items"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.Equal(t, map[string]any{"id": "R-1", "title": "Duct clash"}, resp.Items[0])

	created := ""
	for _, s := range f.acc.Searches {
		if s.Filter.CreatedAt != "" {
			created = s.Filter.CreatedAt
		}
	}
	require.Equal(t, "2025-03-01T17:00:00Z..", created)
}

func TestSearchRFIsErrors(t *testing.T) {
	t.Run("not logged in returns auth url", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(t, http.MethodPost, server.RouteRFIs, testSessionID, `{}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decode(t, rec)
		require.Equal(t, "authentication_required", body["error"])
		require.Contains(t, body["authUrl"], "state="+testSessionID)
	})

	t.Run("refused token asks for login again", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.tokens.Set(context.Background(), testSessionID, token.Record{
			AccessToken: "revoked",
			ExpiresAt:   time.Now().Add(time.Hour),
		}))

		rec := f.do(t, http.MethodPost, server.RouteRFIs, testSessionID, `{}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, decode(t, rec)["authUrl"], "state="+testSessionID)

		rec = f.do(t, http.MethodGet, server.RouteAuthStatus, testSessionID, "")
		status := decode(t, rec)
		require.Equal(t, false, status["logged_in"])
		require.Equal(t, "awaiting_callback", status["state"])
	})

	t.Run("forbidden search keeps status", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t, testSessionID)
		f.acc.SearchStatus = http.StatusForbidden
		rec := f.do(t, http.MethodPost, server.RouteRFIs, testSessionID, `{}`)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, float64(http.StatusForbidden), decode(t, rec)["statusCode"])
	})

	t.Run("store outage", func(t *testing.T) {
		f := setupTestFixture(t)
		f.tokens.SetUnavailable(errors.New("connection refused"))
		rec := f.do(t, http.MethodPost, server.RouteRFIs, testSessionID, `{}`)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("bad activity time", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t, testSessionID)
		rec := f.do(t, http.MethodPost, server.RouteRFIs, testSessionID, `{"activityAfter":"soon"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(t, http.MethodPost, server.RouteRFIs, testSessionID, `{`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRFIMetadataRoutes(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, testSessionID)
	f.acc.Attributes = []acc.AttributeDefinition{{ID: "a", Name: "Discipline"}}
	f.acc.RFITypes = []acc.RFIType{{ID: "t1", Name: "General"}}
	f.acc.SignedURLs["bucket/file.pdf"] = "https://signed.example/file.pdf"
	f.acc.Attachments["R-9"] = []acc.Attachment{{ID: "att-1", DisplayName: "file.pdf", StorageURN: "urn:adsk.objects:os.object:bucket/file.pdf"}}

	rec := f.do(t, http.MethodGet, server.RouteRFIAttributes, testSessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"attributes":[{"id":"a","name":"Discipline"}]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, server.RouteRFITypes, testSessionID, "")
	require.JSONEq(t, `{"types":[{"id":"t1","name":"General"}]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/rfis/R-9/url", testSessionID, "")
	require.JSONEq(t, `{"url":"https://acc.autodesk.com/docs/rfi/R-9"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/rfis/R-9/attachments", testSessionID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var attachments struct {
		Attachments []acc.Attachment `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attachments))
	require.Len(t, attachments.Attachments, 1)
	require.Equal(t, "file.pdf", attachments.Attachments[0].Name())

	rec = f.do(t, http.MethodPost, server.RouteSignedDownload, testSessionID,
		`{"storageUrn":"urn:adsk.objects:os.object:bucket/file.pdf"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "https://signed.example/file.pdf", decode(t, rec)["url"])

	rec = f.do(t, http.MethodPost, server.RouteSignedDownload, testSessionID, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFieldsConfig(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodGet, server.RouteConfigFields, testSessionID, "")
	require.JSONEq(t, `{"fields":[]}`, rec.Body.String())

	fields := `{"fields":[{"id":"title","label":"Title"},{"id":"attr-1","customAttributeId":"attr-1"}]}`
	rec = f.do(t, http.MethodPost, server.RouteConfigFields, testSessionID, fields)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, server.RouteConfigFields, testSessionID, "")
	require.JSONEq(t, fields, rec.Body.String())

	rec = f.do(t, http.MethodGet, server.RouteConfigFields, "another-session", "")
	require.JSONEq(t, `{"fields":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, server.RouteConfigFields, testSessionID, `{"columns":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorsPreflight(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteRFIs, nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", server.SessionHeader)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteRFIs, nil)
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, http.MethodGet, server.RouteHealth, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
