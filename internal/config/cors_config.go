package config

import (
	"strings"

	"github.com/spf13/viper"
)

const allowedOriginsVar = "CORS_ALLOWED_ORIGINS"

type Cors struct {
	v *viper.Viper
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) List() []string {
	origins := make([]string, 0, len(a))
	for k := range a {
		origins = append(origins, k)
	}
	return origins
}

func (a AllowedOrigins) String() string {
	return strings.Join(a.List(), ", ")
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range splitList(c.v, allowedOriginsVar) {
		origins[o] = nullValue{}
	}
	return origins
}

func (Cors) GetAllowedMethods() []string {
	return []string{"GET", "POST", "OPTIONS"}
}

// GetAllowedHeaders includes X-Session-Id, the session carrier.
func (Cors) GetAllowedHeaders() []string {
	return []string{"Origin", "Content-Type", "Accept", "X-Session-Id"}
}
