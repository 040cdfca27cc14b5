package rfis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

func TestFilter_Normalized(t *testing.T) {
	tests := []struct {
		name  string
		in    Filter
		limit int
	}{
		{name: "zero uses default", in: Filter{}, limit: 100},
		{name: "negative uses default", in: Filter{Limit: -4}, limit: 100},
		{name: "within bounds", in: Filter{Limit: 50}, limit: 50},
		{name: "capped", in: Filter{Limit: 1000}, limit: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.limit, tt.in.normalized(DefaultLimit, MaxLimit).Limit)
		})
	}

	f := Filter{SearchText: "  duct  ", Fields: []string{" title", "", "title", "status"}}.normalized(0, 0)
	require.Equal(t, "duct", f.SearchText)
	require.Equal(t, []string{"title", "status"}, f.Fields)
}

func TestParseActivityAfter(t *testing.T) {
	pacific, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{name: "local minutes", value: "2025-03-01T09:30", want: time.Date(2025, 3, 1, 17, 30, 0, 0, time.UTC)},
		{name: "local summer time", value: "2025-07-01T09:30", want: time.Date(2025, 7, 1, 16, 30, 0, 0, time.UTC)},
		{name: "local date", value: "2025-03-01", want: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)},
		{name: "rfc3339 keeps its offset", value: "2025-03-01T09:30:00Z", want: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseActivityAfter(tt.value, pacific)
			require.NoError(t, err)
			require.Equal(t, tt.want, *got)
			require.Equal(t, time.UTC, got.Location())
		})
	}

	got, err := ParseActivityAfter("  ", pacific)
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = ParseActivityAfter("yesterday", pacific)
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestDateRange(t *testing.T) {
	from := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("PST", -8*3600))
	require.Equal(t, "2025-03-01T17:00:00Z..", dateRange(from))
}
