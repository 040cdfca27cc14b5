package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/acc-rfi-service/acc"
	"github.com/jrsteele09/acc-rfi-service/auth"
	"github.com/jrsteele09/acc-rfi-service/auth/authflowrepo"
	"github.com/jrsteele09/acc-rfi-service/internal/config"
	"github.com/jrsteele09/acc-rfi-service/rfis"
	"github.com/jrsteele09/acc-rfi-service/server"
	"github.com/jrsteele09/acc-rfi-service/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)
	if err := c.Validate(); err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	ctx := context.Background()
	redisClient, err := token.NewRedisClient(ctx, token.RedisOptions{
		URL:         c.GetRedisURL(),
		DialTimeout: c.GetRedisDialTimeout(),
		IOTimeout:   c.GetRedisIOTimeout(),
	})
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	tokens := token.NewRedisRepo(redisClient, c.GetRedisKeyPrefix(), c.GetSessionTTL())
	pending := authflowrepo.NewRedisRepo(redisClient, c.GetRedisKeyPrefix())

	platform, err := acc.NewPlatform(acc.Options{
		BaseURL:           c.GetAPSBaseURL(),
		ProjectID:         c.GetProjectID(),
		ClientID:          c.GetClientID(),
		ClientSecret:      c.GetClientSecret(),
		RedirectURI:       c.GetRedirectURI(),
		Scopes:            c.GetScopes(),
		Timeout:           c.GetRequestTimeout(),
		RequestsPerSecond: c.GetRequestsPerSecond(),
		MaxRetries:        c.GetMaxRetries(),
	}, tokens)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(tokens, pending, platform, auth.WithPendingLoginTTL(c.GetPendingLoginTTL()))
	if err != nil {
		return err
	}

	mapping, err := rfis.LoadAttributeMapping(c.GetAttributeMappingFile())
	if err != nil {
		return err
	}
	aggregator := rfis.NewAggregator(platform,
		rfis.WithAttributeMapping(mapping),
		rfis.WithHydrationWorkers(c.GetHydrationWorkers()),
		rfis.WithLimits(c.GetDefaultSearchLimit(), c.GetMaxSearchLimit()),
	)

	handler, err := server.New(c, server.Dependencies{
		Auth:       authService,
		Aggregator: aggregator,
		Clients:    platform,
		Tokens:     tokens,
		Health:     tokens,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(c.GetEnv(), "DEV") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
