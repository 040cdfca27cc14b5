package rfis

import (
	"strings"
	"time"

	"github.com/samber/lo"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

const (
	DefaultLimit = 100
	// MaxLimit is the largest page the platform's search accepts.
	MaxLimit = 200
)

// Filter is what a caller asks the aggregator for.
type Filter struct {
	// SearchText is free text; blank matches everything.
	SearchText string `json:"searchText,omitempty"`
	// After restricts results to RFIs created or updated at or after it.
	After  *time.Time `json:"activityAfter,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Fields []string   `json:"fields,omitempty"`
}

// normalized bounds the limit and tidies the text and field list.
func (f Filter) normalized(defaultLimit, maxLimit int) Filter {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultLimit
	case f.Limit > maxLimit:
		f.Limit = maxLimit
	}
	f.SearchText = strings.TrimSpace(f.SearchText)
	f.Fields = lo.Uniq(lo.Compact(lo.Map(f.Fields, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))
	return f
}

var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseActivityAfter reads the "activity after" input. RFC 3339 values carry
// their own offset; the browser's datetime-local form has none and is read
// in loc. The result is in UTC. Blank input means no lower bound.
func ParseActivityAfter(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return lo.ToPtr(t.UTC()), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return lo.ToPtr(t.UTC()), nil
		}
	}
	return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "unrecognised activityAfter %q", value)
}

// dateRange renders an open ended "from" range in the platform's syntax.
func dateRange(from time.Time) string {
	return from.UTC().Format(time.RFC3339) + ".."
}
