package acc

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

// DefaultWebURL is where a user opens an RFI in the browser.
const DefaultWebURL = "https://acc.autodesk.com/docs/rfi"

// SearchRFIs runs one page of search:rfis against the configured project.
func (c *Client) SearchRFIs(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, projectPath(c.p.ProjectID(), "search:rfis"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRFI fetches the full record for id.
func (c *Client) GetRFI(ctx context.Context, id string) (RFI, error) {
	if id == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "rfi id is required")
	}
	var rfi RFI
	if err := c.get(ctx, projectPath(c.p.ProjectID(), "rfis", id), &rfi); err != nil {
		return nil, err
	}
	return rfi, nil
}

// ListRFITypes returns the RFI types configured on the project.
func (c *Client) ListRFITypes(ctx context.Context) ([]RFIType, error) {
	var resp struct {
		Results []RFIType `json:"results"`
	}
	if err := c.get(ctx, projectPath(c.p.ProjectID(), "rfi-types"), &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// WebURL is the browser link for an RFI.
func WebURL(base, id string) string {
	if base == "" {
		base = DefaultWebURL
	}
	return strings.TrimRight(base, "/") + "/" + id
}
