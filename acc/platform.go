package acc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
	"github.com/jrsteele09/acc-rfi-service/internal/utils"
	"github.com/jrsteele09/acc-rfi-service/token"
)

const (
	DefaultBaseURL      = "https://developer.api.autodesk.com"
	DefaultTimeout      = 30 * time.Second
	DefaultExpiryMargin = 60 * time.Second

	authorizePath = "/authentication/v2/authorize"
	tokenPath     = "/authentication/v2/token"

	// defaultTokenLifetime is assumed when the token response omits expires_in.
	defaultTokenLifetime = time.Hour
	maxResponseBytes     = 16 << 20
)

// Options configures a Platform.
type Options struct {
	BaseURL      string
	ProjectID    string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// Timeout bounds every remote call including retries.
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int

	// ExpiryMargin treats access tokens this close to expiry as expired.
	ExpiryMargin time.Duration
}

// Platform holds the process wide pieces shared by every session: the
// OAuth client configuration, the HTTP transport, the outbound rate limiter
// and the token store. Session bound clients are derived with ForSession.
type Platform struct {
	opts       Options
	baseURL    string
	oauth      *oauth2.Config
	tokens     token.Repo
	httpClient *http.Client
	limiter    *rate.Limiter
	userIDs    singleflight.Group
	nowFunc    func() time.Time
}

type PlatformOption func(*Platform)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(c *http.Client) PlatformOption {
	return func(p *Platform) {
		p.httpClient = c
	}
}

func WithNowTime(now func() time.Time) PlatformOption {
	return func(p *Platform) {
		p.nowFunc = now
	}
}

func NewPlatform(opts Options, tokens token.Repo, options ...PlatformOption) (*Platform, error) {
	if tokens == nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "token store is required")
	}
	if opts.ProjectID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "project id is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ExpiryMargin < 0 {
		opts.ExpiryMargin = 0
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	p := &Platform{
		opts:    opts,
		baseURL: base,
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Scopes:       opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + authorizePath,
				TokenURL:  base + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		tokens:     tokens,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		nowFunc:    time.Now,
	}
	for _, o := range options {
		o(p)
	}
	return p, nil
}

// ProjectID is the single project this deployment serves.
func (p *Platform) ProjectID() string {
	return p.opts.ProjectID
}

// Tokens exposes the store the platform reads session records from.
func (p *Platform) Tokens() token.Repo {
	return p.tokens
}

// ForSession returns a client bound to sessionID. Creating one does no I/O.
func (p *Platform) ForSession(sessionID string) *Client {
	return &Client{p: p, sessionID: sessionID}
}

// AuthCodeURL builds the consent URL the user is sent to. state is echoed
// back on the callback.
func (p *Platform) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token record.
func (p *Platform) Exchange(ctx context.Context, code string) (*token.Record, error) {
	callCtx, cancel := context.WithTimeout(p.oauthContext(ctx), p.opts.Timeout)
	defer cancel()

	tok, err := p.oauth.Exchange(callCtx, code)
	if err != nil {
		return nil, p.oauthError(ctx, http.MethodPost, tokenPath, err)
	}
	return p.grantedRecord(tok)
}

// RefreshToken redeems a refresh token for a new record. The result may lack
// a refresh token; callers merge it with the previous record.
func (p *Platform) RefreshToken(ctx context.Context, refreshToken string) (*token.Record, error) {
	if refreshToken == "" {
		return nil, apperrors.ErrAuthenticationRequired
	}
	callCtx, cancel := context.WithTimeout(p.oauthContext(ctx), p.opts.Timeout)
	defer cancel()

	tok, err := p.oauth.TokenSource(callCtx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, p.oauthError(ctx, http.MethodPost, tokenPath, err)
	}
	return p.grantedRecord(tok)
}

func (p *Platform) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *Platform) oauthError(ctx context.Context, method, path string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &RemoteAPIError{
			Method:     method,
			Path:       path,
			StatusCode: retrieveErr.Response.StatusCode,
			RawBody:    string(retrieveErr.Body),
		}
	}
	return translateTransportError(ctx, method, path, err)
}

// grantedRecord builds the session record for tok, refusing a grant that
// does not cover every configured scope.
func (p *Platform) grantedRecord(tok *oauth2.Token) (*token.Record, error) {
	record := p.recordFromToken(tok)
	if missing := missingScopes(record.Scope, p.opts.Scopes); len(missing) > 0 {
		log.Warn().Str("granted", record.Scope).Strs("missing", missing).Msg("Token grant lacks required scopes")
		return nil, apperrors.Wrapf(apperrors.ErrAuthenticationRequired, "granted scope %q lacks %s", record.Scope, strings.Join(missing, " "))
	}
	return &record, nil
}

func (p *Platform) recordFromToken(tok *oauth2.Token) token.Record {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = p.nowFunc().Add(defaultTokenLifetime)
	}
	scope, _ := tok.Extra("scope").(string)
	if scope == "" {
		scope = scopeFromAccessToken(tok.AccessToken)
	}
	return token.Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt.UTC(),
		Scope:        scope,
	}
}

// scopeFromAccessToken reads the granted scopes out of an APS access token.
// The token is only inspected; APS is the party that verifies it.
func scopeFromAccessToken(accessToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return ""
	}
	switch s := claims["scope"].(type) {
	case string:
		return s
	case []any:
		return strings.Join(utils.ToStringSlice(s), " ")
	}
	return ""
}

// missingScopes lists the required scopes absent from granted. An empty
// grant means the provider did not say, and nothing is reported missing.
func missingScopes(granted string, required []string) []string {
	if strings.TrimSpace(granted) == "" {
		return nil
	}
	return lo.Without(required, strings.Fields(granted)...)
}

// send performs one logical remote call: rate limited, bounded by the
// platform timeout, retried on throttling and transient gateway errors.
func (p *Platform) send(ctx context.Context, method, path, accessToken string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	endpoint := p.baseURL + path
	operation := func() ([]byte, error) {
		if err := p.limiter.Wait(callCtx); err != nil {
			return nil, backoff.Permanent(translateTransportError(ctx, method, path, err))
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(callCtx, method, endpoint, reqBody)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, backoff.Permanent(translateTransportError(ctx, method, path, err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, backoff.Permanent(translateTransportError(ctx, method, path, err))
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := &RemoteAPIError{Method: method, Path: path, StatusCode: resp.StatusCode, RawBody: string(data)}
			if isRetryableStatus(resp.StatusCode) {
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return data, nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 250 * time.Millisecond

	data, err := backoff.Retry(callCtx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(p.opts.MaxRetries+1)),
		backoff.WithMaxElapsedTime(p.opts.Timeout),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warn().Err(err).Str("path", path).Dur("retry_in", d).Msg("Retrying platform request")
		}),
	)
	if err != nil {
		var apiErr *RemoteAPIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, translateTransportError(ctx, method, path, err)
	}
	return data, nil
}

func projectPath(projectID string, parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped = append(escaped, url.PathEscape(part))
	}
	path := "/construction/rfis/v3/projects/" + url.PathEscape(projectID)
	if len(escaped) > 0 {
		path += "/" + strings.Join(escaped, "/")
	}
	return path
}
