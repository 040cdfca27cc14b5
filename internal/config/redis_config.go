package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	redisURLVar         = "REDIS_URL"
	redisKeyPrefixVar   = "REDIS_KEY_PREFIX"
	redisDialTimeoutVar = "REDIS_DIAL_TIMEOUT"
	redisIOTimeoutVar   = "REDIS_IO_TIMEOUT"
)

type RedisConfig interface {
	GetRedisURL() string
	GetRedisKeyPrefix() string
	GetRedisDialTimeout() time.Duration
	GetRedisIOTimeout() time.Duration
}

type Redis struct {
	v *viper.Viper
}

var _ RedisConfig = Redis{}

func (r Redis) GetRedisURL() string {
	return r.v.GetString(redisURLVar)
}

// GetRedisKeyPrefix lets several deployments share one Redis, e.g. "rfi:prod:".
func (r Redis) GetRedisKeyPrefix() string {
	return r.v.GetString(redisKeyPrefixVar)
}

func (r Redis) GetRedisDialTimeout() time.Duration {
	return r.v.GetDuration(redisDialTimeoutVar)
}

func (r Redis) GetRedisIOTimeout() time.Duration {
	return r.v.GetDuration(redisIOTimeoutVar)
}
