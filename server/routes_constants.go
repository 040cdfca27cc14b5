package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteLogin      = "/api/login"
	RouteLogout     = "/api/logout"
	RouteAuthStatus = "/api/auth/status"
	RouteCallback   = "/callback"

	// RFI Routes
	RouteRFIs           = "/api/rfis"
	RouteRFIAttributes  = "/api/rfis/attributes"
	RouteRFITypes       = "/api/rfis/types"
	RouteRFIURL         = "/api/rfis/{id}/url"
	RouteRFIAttachments = "/api/rfis/{id}/attachments"
	RouteSignedDownload = "/api/acc/signed-download"

	// Config Routes
	RouteConfigFields = "/api/config/fields"

	RouteHealth = "/healthz"
)

// SessionHeader carries the caller's session id in both directions.
const SessionHeader = "X-Session-Id"
