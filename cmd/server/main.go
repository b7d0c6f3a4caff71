package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/film-catalog/internal/config"
	"github.com/iliyamo/film-catalog/internal/database"
	"github.com/iliyamo/film-catalog/internal/handler"
	"github.com/iliyamo/film-catalog/internal/logging"
	"github.com/iliyamo/film-catalog/internal/middleware"
	"github.com/iliyamo/film-catalog/internal/queue"
	"github.com/iliyamo/film-catalog/internal/repository"
	"github.com/iliyamo/film-catalog/internal/router"
	"github.com/iliyamo/film-catalog/internal/service"
)

var (
	version = "dev"
	commit  = "none"
)

var envFile string

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Film catalog API",
		Long:          `Serves the film and actor catalog over HTTP and consumes its change events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
		RunE: serve,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "consume",
			Short: "Append catalog events from the queue to the audit log",
			RunE:  consume,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("film-catalog %s (commit: %s)\n", version, commit)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.NewManager(database.Config{
		URI:            cfg.MongoURI,
		Name:           cfg.DBName,
		ConnectTimeout: cfg.ConnectTimeout,
	})

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn().Msg("redis unavailable; response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	h := handler.NewCatalogHandler(
		repository.NewFilmRepo(db),
		repository.NewActorRepo(db),
		service.NewPublisher(cfg.Events),
		cfg.HandlerTimeout,
	)

	e := router.New(cfg.CORSOrigins)
	router.RegisterRoutes(e, db)
	router.RegisterCatalog(e, h,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("db", db.Name()).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := h.Drain(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("catalog events still pending at shutdown")
	}
	if err := db.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
	log.Info().Msg("server stopped")
	return nil
}

func consume(cmd *cobra.Command, args []string) error {
	ev := config.LoadEventsConfig()
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: ev.URL, Queue: ev.Queue, LogPath: ev.LogPath}
	log.Info().Str("queue", c.Queue).Str("log", c.LogPath).Msg("catalog-consumer: starting")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("catalog-consumer: stopped")
	return nil
}
