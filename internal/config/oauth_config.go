package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	apsBaseURLVar      = "APS_BASE_URL"
	clientIDVar        = "APS_CLIENT_ID"
	clientSecretVar    = "APS_CLIENT_SECRET"
	redirectURIVar     = "APS_REDIRECT_URI"
	scopesVar          = "APS_SCOPES"
	sessionTTLVar      = "SESSION_TTL"
	pendingLoginTTLVar = "PENDING_LOGIN_TTL"
)

type OAuthConfig interface {
	GetAPSBaseURL() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() []string
	GetSessionTTL() time.Duration
	GetPendingLoginTTL() time.Duration
}

type OAuth struct {
	v *viper.Viper
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetAPSBaseURL() string {
	return o.v.GetString(apsBaseURLVar)
}

func (o OAuth) GetClientID() string {
	return o.v.GetString(clientIDVar)
}

func (o OAuth) GetClientSecret() string {
	return o.v.GetString(clientSecretVar)
}

func (o OAuth) GetRedirectURI() string {
	return o.v.GetString(redirectURIVar)
}

func (o OAuth) GetScopes() []string {
	return splitList(o.v, scopesVar)
}

// GetSessionTTL bounds how long a stored session survives in the token store.
// APS refresh tokens last 15 days, so the default stays inside that window.
func (o OAuth) GetSessionTTL() time.Duration {
	return o.v.GetDuration(sessionTTLVar)
}

func (o OAuth) GetPendingLoginTTL() time.Duration {
	return o.v.GetDuration(pendingLoginTTLVar)
}
