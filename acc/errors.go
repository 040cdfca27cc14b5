package acc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

// ErrCredentialsRejected means the platform refused a session's tokens and no
// refresh could replace them. It is also an ErrAuthenticationRequired.
var ErrCredentialsRejected = fmt.Errorf("%w: credentials rejected", apperrors.ErrAuthenticationRequired)

// RemoteAPIError is returned for every unsuccessful call to the platform.
// Callers branch on StatusCode; the body is kept for diagnostics only.
type RemoteAPIError struct {
	Method     string
	Path       string
	StatusCode int
	RawBody    string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("%s %s failed with status code %d", e.Method, e.Path, e.StatusCode)
}

// StatusCode extracts the upstream status from err, if it carries one.
func StatusCode(err error) (int, bool) {
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// IsStatus reports whether err is a RemoteAPIError with the given status.
func IsStatus(err error, status int) bool {
	code, ok := StatusCode(err)
	return ok && code == status
}

// IsRejectedGrant reports whether the token endpoint refused the grant itself,
// as opposed to being unreachable.
func IsRejectedGrant(err error) bool {
	code, ok := StatusCode(err)
	return ok && (code == http.StatusBadRequest || code == http.StatusUnauthorized)
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// translateTransportError turns a timeout into the same typed error a non-200
// would produce. Cancellation by the caller is passed through untouched.
func translateTransportError(parent context.Context, method, path string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &RemoteAPIError{Method: method, Path: path, StatusCode: http.StatusGatewayTimeout, RawBody: err.Error()}
	}
	return &RemoteAPIError{Method: method, Path: path, StatusCode: http.StatusBadGateway, RawBody: err.Error()}
}
