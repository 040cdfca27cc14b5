package auth

import (
	"fmt"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

var (
	// ErrMissingSession is returned when an operation is called without a session id.
	ErrMissingSession = fmt.Errorf("session id is required: %w", apperrors.ErrInvalidRequest)
	ErrMissingCode    = fmt.Errorf("authorization code is required: %w", apperrors.ErrInvalidRequest)
)
