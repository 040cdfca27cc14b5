package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	RedisConfig
	RFIConfig
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetFixedSessionID() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Redis
	RFI
}

// New loads configuration from the environment and, when present, a .env file
// or the file named by CONFIG_FILE.
func New() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".env")
		v.SetConfigType("env")
		v.AddConfigPath(".")
		v.AddConfigPath("..")
	}
	// A missing .env is normal outside packaged builds; an explicit CONFIG_FILE must load.
	if err := v.ReadInConfig(); err != nil && v.GetString("CONFIG_FILE") != "" {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrConfiguration, v.ConfigFileUsed(), err)
	}

	return NewFromViper(v), nil
}

// NewFromViper builds a Config over an existing viper instance. Tests use it
// to inject values without touching the process environment.
func NewFromViper(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars: EnvVars{v: v},
		Cors:    Cors{v: v},
		OAuth:   OAuth{v: v},
		Redis:   Redis{v: v},
		RFI:     RFI{v: v},
	}
}

// Validate fails fast when a credential or identifier the service cannot run
// without is missing.
func (c mainConfig) Validate() error {
	required := map[string]string{
		clientIDVar:     c.GetClientID(),
		clientSecretVar: c.GetClientSecret(),
		redirectURIVar:  c.GetRedirectURI(),
		projectIDVar:    c.GetProjectID(),
		redisURLVar:     c.GetRedisURL(),
	}

	var missing []string
	for _, name := range []string{clientIDVar, clientSecretVar, redirectURIVar, projectIDVar, redisURLVar} {
		if strings.TrimSpace(required[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must be set", apperrors.ErrConfiguration, strings.Join(missing, ", "))
	}

	if c.GetMaxSearchLimit() < 1 {
		return fmt.Errorf("%w: %s must be positive", apperrors.ErrConfiguration, maxSearchLimitVar)
	}
	if _, err := c.GetLocation(); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrConfiguration, timezoneVar, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portEnvVar, "8000")
	v.SetDefault(appNameVar, "ACC RFI Service")
	v.SetDefault(envVar, "DEV")
	v.SetDefault(logLevelVar, "info")

	v.SetDefault(apsBaseURLVar, "https://developer.api.autodesk.com")
	v.SetDefault(scopesVar, "data:read")
	v.SetDefault(sessionTTLVar, "336h")
	v.SetDefault(pendingLoginTTLVar, "10m")

	v.SetDefault(redisKeyPrefixVar, "")
	v.SetDefault(redisDialTimeoutVar, "5s")
	v.SetDefault(redisIOTimeoutVar, "3s")

	v.SetDefault(requestTimeoutVar, "30s")
	v.SetDefault(requestsPerSecondVar, 10)
	v.SetDefault(maxRetriesVar, 3)
	v.SetDefault(defaultSearchLimitVar, 100)
	v.SetDefault(maxSearchLimitVar, 200)
	v.SetDefault(hydrationWorkersVar, 8)
	v.SetDefault(timezoneVar, "America/Los_Angeles")
	v.SetDefault(rfiWebURLVar, "https://acc.autodesk.com/docs/rfi")

	v.SetDefault(allowedOriginsVar, "http://localhost:5173,http://localhost:8000")
}
