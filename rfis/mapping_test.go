package rfis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/acc-rfi-service/rfis"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAttributeMapping(t *testing.T) {
	t.Run("yaml with names", func(t *testing.T) {
		path := writeFile(t, "mapping.yaml", `
attr-1:
  name: Discipline
  options:
    "0": Civil
    "1": Structural
attr-2:
  "a": Alpha
`)
		m, err := rfis.LoadAttributeMapping(path)
		require.NoError(t, err)

		name, ok := m.Name("attr-1")
		require.True(t, ok)
		require.Equal(t, "Discipline", name)
		require.Equal(t, "Structural", m.Resolve("attr-1", float64(1)))
		require.Equal(t, "Alpha", m.Resolve("attr-2", "a"))
		require.Equal(t, "b", m.Resolve("attr-2", "b"))

		_, ok = m.Name("attr-2")
		require.False(t, ok)
	})

	t.Run("json", func(t *testing.T) {
		path := writeFile(t, "mapping.json", `{"attr-1": {"0": "Civil"}}`)
		m, err := rfis.LoadAttributeMapping(path)
		require.NoError(t, err)
		require.Equal(t, "Civil", m.Resolve("attr-1", float64(0)))
	})

	t.Run("missing file", func(t *testing.T) {
		m, err := rfis.LoadAttributeMapping(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		require.Nil(t, m)
		require.Equal(t, "x", m.Resolve("attr-1", "x"))
	})

	t.Run("blank path", func(t *testing.T) {
		m, err := rfis.LoadAttributeMapping("")
		require.NoError(t, err)
		require.Nil(t, m)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := rfis.LoadAttributeMapping(writeFile(t, "bad.yaml", "attr-1: [unterminated"))
		require.Error(t, err)
	})
}
