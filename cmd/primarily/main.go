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

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/activity"
	"github.com/umerali06/primarily-backend-sub001/internal/alerts"
	"github.com/umerali06/primarily-backend-sub001/internal/api"
	"github.com/umerali06/primarily-backend-sub001/internal/auth"
	"github.com/umerali06/primarily-backend-sub001/internal/blob"
	"github.com/umerali06/primarily-backend-sub001/internal/config"
	"github.com/umerali06/primarily-backend-sub001/internal/db"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/imaging"
	"github.com/umerali06/primarily-backend-sub001/internal/logger"
	"github.com/umerali06/primarily-backend-sub001/internal/metrics"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stdout, "Usage: primarily [flags]\n\nFlags:\n%s", config.Usage())
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Environment,
		ServiceName: "primarily",
		File:        cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting", cfg.LogFields()...)

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	log.Info("database ready", zap.String("path", cfg.Database.Path))

	ctx := context.Background()
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Generated on first run and kept in the database.
		if secret, err = store.GetJWTSecret(ctx, database); err != nil {
			return fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	if n, err := store.CountUsers(ctx, database); err == nil && n == 0 {
		log.Info("no accounts yet, the first registered account becomes an administrator")
	}

	blobs, err := blob.New(cfg.Media.Dir, cfg.Media.URLPrefix)
	if err != nil {
		return err
	}

	m := metrics.New("primarily")

	dispatcher := events.New(log, m, events.Options{HandlerTimeout: cfg.Events.HandlerTimeout})
	if err := activity.New(database, log, m).Subscribe(dispatcher); err != nil {
		return fmt.Errorf("subscribing activity recorder: %w", err)
	}
	if err := alerts.New(database, log, m).Subscribe(dispatcher); err != nil {
		return fmt.Errorf("subscribing alert deriver: %w", err)
	}
	dispatcher.Start()

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweeper := alerts.NewSweeper(database, log, m, cfg.Alerts.Retention, cfg.Alerts.SweepInterval)
	go sweeper.Run(sweepCtx)

	router := api.NewRouter(&api.Deps{
		DB:  database,
		Log: log,
		Tokens: &auth.TokenService{
			Secret:     []byte(secret),
			Issuer:     cfg.Auth.Issuer,
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		},
		BcryptCost:     cfg.Auth.BcryptCost,
		Events:         dispatcher,
		Metrics:        m,
		Blobs:          blobs,
		Images:         imaging.Processor{MaxDimension: cfg.Media.MaxDimension},
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	if err := serve(log, server, dispatcher, quit, cfg.Server.ShutdownTimeout); err != nil {
		return err
	}

	log.Info("server stopped, closing database")
	return nil
}
