package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/acc-rfi-service/auth"
	"github.com/jrsteele09/acc-rfi-service/internal/config"
	"github.com/jrsteele09/acc-rfi-service/rfis"
	"github.com/jrsteele09/acc-rfi-service/token"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the HTTP facade adapts.
type Dependencies struct {
	Auth       *auth.Service
	Aggregator *rfis.Aggregator
	Clients    rfis.SessionClients
	Tokens     token.Repo
	Health     HealthChecker
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	handler  http.Handler
	routes   []string
	config   config.Config
	deps     Dependencies
	location *time.Location
}

func New(config config.Config, deps Dependencies) (*Server, error) {
	if deps.Auth == nil || deps.Aggregator == nil || deps.Clients == nil || deps.Tokens == nil {
		return nil, errors.New("[Server New] auth, aggregator, clients and tokens are required")
	}
	location, err := config.GetLocation()
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		deps:     deps,
		location: location,
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins:   config.GetAllowedOrigins().List(),
		AllowedMethods:   config.GetAllowedMethods(),
		AllowedHeaders:   config.GetAllowedHeaders(),
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(s.mux)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", method
		}
		log.Debug().Msgf("[%-17s] %s", colourMethod(method), path)
	}
}
