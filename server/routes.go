package server

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthStatus, ChainMiddleware(s.AuthStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))

	// RFIs
	s.RegisterRouteHandler("POST "+RouteRFIs, ChainMiddleware(s.SearchRFIsHandler(), s.APIMiddleware(s.CompressionMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteRFIAttributes, ChainMiddleware(s.RFIAttributesHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteRFITypes, ChainMiddleware(s.RFITypesHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteRFIURL, ChainMiddleware(s.RFIURLHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteRFIAttachments, ChainMiddleware(s.RFIAttachmentsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignedDownload, ChainMiddleware(s.SignedDownloadHandler(), s.APIMiddleware()...))

	// CONFIG
	s.RegisterRouteHandler("GET "+RouteConfigFields, ChainMiddleware(s.GetFieldsConfigHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteConfigFields, ChainMiddleware(s.SaveFieldsConfigHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
