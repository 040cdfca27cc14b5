package acc

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestScopeFromAccessToken(t *testing.T) {
	signed := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}

	require.Equal(t, "data:read", scopeFromAccessToken(signed(jwt.MapClaims{"scope": "data:read"})))
	require.Equal(t, "data:read data:write", scopeFromAccessToken(signed(jwt.MapClaims{"scope": []any{"data:read", "data:write"}})))
	require.Empty(t, scopeFromAccessToken("opaque"))
}

func TestMissingScopes(t *testing.T) {
	require.Empty(t, missingScopes("", []string{"data:read"}))
	require.Empty(t, missingScopes("data:read data:write", []string{"data:read"}))
	require.Equal(t, []string{"data:read"}, missingScopes("account:read", []string{"data:read"}))
	require.Equal(t, []string{"data:read"}, missingScopes(scopeFromAccessToken(signedScope(t, []any{"account:read"})), []string{"data:read"}))
}

func signedScope(t *testing.T, scope any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"scope": scope}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}
