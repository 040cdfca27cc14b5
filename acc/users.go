package acc

import (
	"context"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"
)

var errNoUserID = errors.New("users/me response carried no user id")

// GetUserID returns the platform id of the signed in user. It is fetched at
// most once per session and then kept on the session's token record.
func (c *Client) GetUserID(ctx context.Context) (string, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return "", err
	}
	if rec.UserID != "" {
		return rec.UserID, nil
	}

	// Shared by concurrent callers: detached from the first caller's cancellation.
	v, err, _ := c.p.userIDs.Do(c.sessionID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.p.opts.Timeout)
		defer cancel()

		path := projectPath(c.p.ProjectID(), "users", "me")
		data, err := c.call(ctx, http.MethodGet, path, nil)
		if err != nil {
			return "", err
		}
		id := gjson.GetBytes(data, "user.id").String()
		if id == "" {
			id = gjson.GetBytes(data, "id").String()
		}
		if id == "" {
			return "", &RemoteAPIError{Method: http.MethodGet, Path: path, StatusCode: http.StatusBadGateway, RawBody: errNoUserID.Error()}
		}

		// Re-read so a refresh that raced this lookup is not overwritten.
		latest, err := c.p.tokens.Get(ctx, c.sessionID)
		if err != nil {
			return "", err
		}
		latest.UserID = id
		if err := c.p.tokens.Set(ctx, c.sessionID, *latest); err != nil {
			return "", err
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
