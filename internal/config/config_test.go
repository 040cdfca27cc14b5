package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/acc-rfi-service/internal/config"
	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

func validViper() *viper.Viper {
	v := viper.New()
	v.Set("APS_CLIENT_ID", "client")
	v.Set("APS_CLIENT_SECRET", "secret")
	v.Set("APS_REDIRECT_URI", "http://localhost:8000/callback")
	v.Set("ACC_PROJECT_ID", "project-1")
	v.Set("REDIS_URL", "redis://localhost:6379/0")
	return v
}

func TestConfig_Validate(t *testing.T) {
	t.Run("complete configuration", func(t *testing.T) {
		c := config.NewFromViper(validViper())
		require.NoError(t, c.Validate())
	})

	t.Run("missing credentials fail fast", func(t *testing.T) {
		v := validViper()
		v.Set("APS_CLIENT_SECRET", "")
		v.Set("ACC_PROJECT_ID", " ")

		err := config.NewFromViper(v).Validate()
		require.ErrorIs(t, err, apperrors.ErrConfiguration)
		require.Contains(t, err.Error(), "APS_CLIENT_SECRET")
		require.Contains(t, err.Error(), "ACC_PROJECT_ID")
	})

	t.Run("unknown timezone", func(t *testing.T) {
		v := validViper()
		v.Set("ACC_TIMEZONE", "Mars/Olympus_Mons")
		require.ErrorIs(t, config.NewFromViper(v).Validate(), apperrors.ErrConfiguration)
	})
}

func TestConfig_Defaults(t *testing.T) {
	c := config.NewFromViper(validViper())

	require.Equal(t, ":8000", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "https://developer.api.autodesk.com", c.GetAPSBaseURL())
	require.Equal(t, []string{"data:read"}, c.GetScopes())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
	require.Equal(t, 100, c.GetDefaultSearchLimit())
	require.Equal(t, 200, c.GetMaxSearchLimit())
	require.Equal(t, 8, c.GetHydrationWorkers())

	loc, err := c.GetLocation()
	require.NoError(t, err)
	require.Equal(t, "America/Los_Angeles", loc.String())
}

func TestConfig_Lists(t *testing.T) {
	v := validViper()
	v.Set("APS_SCOPES", "data:read account:read")
	v.Set("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	v.Set("PORT", ":9000")
	c := config.NewFromViper(v)

	require.Equal(t, []string{"data:read", "account:read"}, c.GetScopes())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://b.test"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("http://c.test"))
	require.Equal(t, ":9000", c.GetPort())
}
