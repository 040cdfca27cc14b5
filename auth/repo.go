package auth

import (
	"context"

	"github.com/jrsteele09/acc-rfi-service/token"
)

// Authenticator talks to the identity provider's authorization and token
// endpoints. acc.Platform is the production implementation.
type Authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*token.Record, error)
	RefreshToken(ctx context.Context, refreshToken string) (*token.Record, error)
}
