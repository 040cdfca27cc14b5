package acc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
	"github.com/jrsteele09/acc-rfi-service/internal/utils"
	"github.com/jrsteele09/acc-rfi-service/token"
)

// Client calls the platform on behalf of one session. It holds no token
// itself: every call reads the session's current record from the store.
type Client struct {
	p         *Platform
	sessionID string
}

func (c *Client) SessionID() string {
	return c.sessionID
}

// record loads the session's credentials, renewing them first when the
// access token is expired and a refresh token is held.
func (c *Client) record(ctx context.Context) (*token.Record, error) {
	rec, err := c.p.tokens.Get(ctx, c.sessionID)
	if errors.Is(err, token.ErrNotFound) {
		return nil, apperrors.ErrAuthenticationRequired
	}
	if err != nil {
		return nil, err
	}
	if rec.AccessToken == "" {
		return nil, apperrors.ErrAuthenticationRequired
	}
	if !rec.Expired(c.p.nowFunc(), c.p.opts.ExpiryMargin) {
		return rec, nil
	}
	if !rec.CanRefresh() {
		return nil, apperrors.ErrAuthenticationRequired
	}
	return c.renew(ctx, rec)
}

// renew redeems rec's refresh token and stores the merged result.
func (c *Client) renew(ctx context.Context, rec *token.Record) (*token.Record, error) {
	renewed, err := c.p.RefreshToken(ctx, rec.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Str("session_id", utils.ShortID(c.sessionID)).Msg("Token refresh failed")
		if IsRejectedGrant(err) {
			return nil, apperrors.Wrapf(ErrCredentialsRejected, "refresh token refused: %v", err)
		}
		return nil, apperrors.Wrapf(apperrors.ErrAuthenticationRequired, "refresh failed: %v", err)
	}
	next := renewed.Inherit(rec)
	if err := c.p.tokens.Set(ctx, c.sessionID, next); err != nil {
		return nil, err
	}
	log.Debug().Str("session_id", utils.ShortID(c.sessionID)).Object("record", next).Msg("Session token refreshed")
	return &next, nil
}

// call sends one request with the session's access token. A 401 on a token
// that has not expired gets one refresh and one retry.
func (c *Client) call(ctx context.Context, method, path string, body any) ([]byte, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.p.send(ctx, method, path, rec.AccessToken, body)
	if !IsStatus(err, http.StatusUnauthorized) {
		return data, err
	}
	if !rec.CanRefresh() {
		return nil, apperrors.Wrapf(ErrCredentialsRejected, "access token refused: %v", err)
	}

	log.Debug().Str("session_id", utils.ShortID(c.sessionID)).Str("path", path).Msg("Access token refused, refreshing")
	if rec, err = c.renew(ctx, rec); err != nil {
		return nil, err
	}
	data, err = c.p.send(ctx, method, path, rec.AccessToken, body)
	if IsStatus(err, http.StatusUnauthorized) {
		return nil, apperrors.Wrapf(ErrCredentialsRejected, "refreshed access token refused: %v", err)
	}
	return data, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.decode(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.decode(ctx, http.MethodPost, path, body, out)
}

func (c *Client) decode(ctx context.Context, method, path string, body, out any) error {
	data, err := c.call(ctx, method, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RemoteAPIError{
			Method:     method,
			Path:       path,
			StatusCode: http.StatusBadGateway,
			RawBody:    fmt.Sprintf("invalid response body: %v", err),
		}
	}
	return nil
}
