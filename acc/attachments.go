package acc

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

const objectURNPrefix = "urn:adsk.objects:os.object:"

// GetAttachments lists the files attached to an RFI.
func (c *Client) GetAttachments(ctx context.Context, rfiID string) ([]Attachment, error) {
	if rfiID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "rfi id is required")
	}
	var resp struct {
		Results []Attachment `json:"results"`
	}
	if err := c.get(ctx, projectPath(c.p.ProjectID(), "rfis", rfiID, "attachments"), &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SignedDownloadURL exchanges an object storage URN for a short lived
// download link.
func (c *Client) SignedDownloadURL(ctx context.Context, storageURN string) (string, error) {
	bucket, object, err := ParseObjectURN(storageURN)
	if err != nil {
		return "", err
	}
	path := "/oss/v2/buckets/" + url.PathEscape(bucket) + "/objects/" + url.PathEscape(object) + "/signeds3download"
	data, err := c.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	signed := gjson.GetBytes(data, "url").String()
	if signed == "" {
		return "", &RemoteAPIError{Method: http.MethodGet, Path: path, StatusCode: http.StatusBadGateway, RawBody: string(data)}
	}
	return signed, nil
}

// ParseObjectURN splits "urn:adsk.objects:os.object:<bucket>/<object>".
func ParseObjectURN(urn string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(urn, objectURNPrefix)
	if !ok {
		return "", "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "unsupported storage urn %q", urn)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "malformed storage urn %q", urn)
	}
	return bucket, object, nil
}
