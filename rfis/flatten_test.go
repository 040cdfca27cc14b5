package rfis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/acc-rfi-service/acc"
	"github.com/jrsteele09/acc-rfi-service/rfis"
)

func TestFlatten(t *testing.T) {
	mapping := rfis.AttributeMapping{
		"discipline": {Options: map[string]string{"1": "Structural"}},
	}
	record := acc.RFI{
		"id": "R-1",
		"customAttributes": []any{
			map[string]any{"attributeDefinitionId": "discipline", "values": []any{float64(1)}},
			map[string]any{"id": "zone", "values": []any{"North", "South"}},
			map[string]any{"attributeDefinitionId": "empty", "values": []any{}},
			map[string]any{"values": []any{"orphan"}},
			"not an attribute",
		},
	}

	flat := rfis.Flatten(record, mapping)
	require.Equal(t, acc.RFI{"id": "R-1", "discipline": "Structural", "zone": "North", "empty": nil}, flat)
	require.Contains(t, record, "customAttributes", "input must not be modified")

	t.Run("idempotent", func(t *testing.T) {
		require.Equal(t, flat, rfis.Flatten(flat, mapping))
	})

	t.Run("no attributes", func(t *testing.T) {
		plain := acc.RFI{"id": "R-2"}
		require.Equal(t, plain, rfis.Flatten(plain, nil))
	})

	t.Run("nil mapping passes raw values", func(t *testing.T) {
		require.Equal(t, float64(1), rfis.Flatten(record, nil)["discipline"])
	})
}

func TestProject(t *testing.T) {
	record := acc.RFI{"id": "R-1", "title": "Title", "status": "open", "question": "Why?", "dueDate": nil}

	t.Run("default fields", func(t *testing.T) {
		require.Equal(t, acc.RFI{"id": "R-1", "customIdentifier": "", "title": "Title", "status": "open"}, rfis.Project(record, nil))
	})

	t.Run("requested fields only", func(t *testing.T) {
		got := rfis.Project(record, []string{"question", "dueDate", "missing"})
		require.Equal(t, acc.RFI{"question": "Why?", "dueDate": "", "missing": ""}, got)
		require.NotContains(t, got, "id")
	})
}
