package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hulubedeje/hms/internal/config"
	"github.com/hulubedeje/hms/internal/domain/catalog"
	"github.com/hulubedeje/hms/internal/domain/identity"
	"github.com/hulubedeje/hms/internal/domain/records"
	"github.com/hulubedeje/hms/internal/domain/system"
	"github.com/hulubedeje/hms/internal/platform/docstore"
	"github.com/hulubedeje/hms/internal/platform/events"
	"github.com/hulubedeje/hms/internal/platform/middleware"
	"github.com/hulubedeje/hms/internal/platform/openapi"
	"github.com/hulubedeje/hms/internal/platform/telemetry"
)

const (
	serviceName = "Hulubedeje"
	apiVersion  = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hulubedeje hospital management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(collectionsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to the document store and ping it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			gw := docstore.NewGateway(cfg.Store(), nil)
			defer gw.Close(context.Background())

			if err := gw.Ping(ctx); err != nil {
				return fmt.Errorf("ping %s store: %w", docstore.Scheme(cfg.DatabaseURL), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store %q is reachable\n", docstore.Scheme(cfg.DatabaseURL), cfg.DatabaseName)
			return nil
		},
	}
}

func collectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List collections in the document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("max")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			gw := docstore.NewGateway(cfg.Store(), nil)
			defer gw.Close(context.Background())

			names, err := gw.Collections(ctx, limit)
			if err != nil {
				return fmt.Errorf("list collections: %w", err)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().Int("max", system.MaxCollections, "Maximum number of collections to list")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// server bundles the HTTP surface with the resources it must release.
type server struct {
	echo      *echo.Echo
	gateway   *docstore.Gateway
	records   *records.Service
	publisher events.Publisher
	metrics   *telemetry.Metrics
}

func newServer(cfg *config.Config, logger zerolog.Logger, dial docstore.Dialer, pub events.Publisher) *server {
	metrics := telemetry.NewMetrics()
	gw := docstore.NewGateway(cfg.Store(), dial, docstore.WithObserver(metrics))
	if pub == nil {
		pub = events.Nop{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	registry := catalog.NewRegistry()

	system.NewHandler(serviceName, gw).RegisterRoutes(e)
	e.GET("/health/store", docstore.HealthHandler(gw))
	e.GET("/metrics", metrics.Handler())

	api := e.Group("")
	routes := records.Routes()

	recordSvc := records.NewService(registry, gw, pub, logger)
	recordSvc.SetEventObserver(metrics)
	recordSvc.SetPublishTimeout(cfg.PublishTimeout)
	records.NewHandler(recordSvc, routes).RegisterRoutes(api)

	identitySvc := identity.NewService(registry, gw, logger)
	identity.NewHandler(identitySvc).RegisterRoutes(api)

	collections := make([]openapi.Collection, 0, len(routes))
	for _, rt := range routes {
		collections = append(collections, openapi.Collection{Path: rt.Path, Kind: rt.Kind, Limit: rt.Limit, Filters: rt.Filters})
	}
	openapi.NewGenerator(registry, collections, serviceName+" API", apiVersion).RegisterRoutes(e)

	return &server{echo: e, gateway: gw, records: recordSvc, publisher: pub, metrics: metrics}
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	if !cfg.EventsEnabled() {
		return events.Nop{}
	}
	pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		logger.Warn().Err(err).Msg("record events disabled")
		return events.Nop{}
	}
	logger.Info().Str("topic", cfg.KafkaTopic).Msg("publishing record events to kafka")
	return pub
}

func (s *server) shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.records.Drain()
	if cerr := s.publisher.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := s.gateway.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	srv := newServer(cfg, logger, nil, newPublisher(cfg, logger))

	// Warm the store connection. Failure is not fatal; requests retry the dial.
	if cfg.StoreConfigured() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout+time.Second)
		if _, err := srv.gateway.Connect(ctx); err != nil {
			logger.Warn().Err(err).Str("backend", docstore.Scheme(cfg.DatabaseURL)).Msg("document store not reachable yet")
		} else {
			logger.Info().Str("backend", docstore.Scheme(cfg.DatabaseURL)).Str("database", cfg.DatabaseName).Msg("connected to document store")
		}
		cancel()
	} else {
		logger.Warn().Msg("DATABASE_URL or DATABASE_NAME not set; store endpoints will fail")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
