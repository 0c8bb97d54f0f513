package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/api"
	"github.com/subrelay/backend/internal/api/middleware"
	"github.com/subrelay/backend/internal/auth"
	"github.com/subrelay/backend/internal/config"
	"github.com/subrelay/backend/internal/db"
	"github.com/subrelay/backend/internal/subtitle/tokenize"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(func(c *config.Config) {
				if cmd.Flags().Changed("port") {
					c.Port = port
				}
			})
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.Info("admin user ensured", zap.String("username", cfg.AdminUsername))
	if cfg.AdminPassword == "admin" {
		logger.Warn("admin password is the default, set ADMIN_PASSWORD")
	}
	if cfg.GeneratedSecret {
		logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	japanese := tokenize.NewMorphological()
	go func() {
		start := time.Now()
		if err := japanese.Warm(); err != nil {
			logger.Warn("japanese tokenizer unavailable", zap.Error(err))
			return
		}
		logger.Debug("japanese dictionary loaded", zap.Duration("took", time.Since(start)))
	}()

	service, err := a.newService(database, japanese)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		DB:      database,
		JWT:     auth.NewJWTService(cfg.JWTSecret),
		Config:  cfg,
		Service: service,
		Limiter: middleware.NewRateLimiter(ctx, cfg.HTTP.RateLimitPerMinute, time.Minute),
		Logger:  logger,
	})

	// No write timeout: translations stream for as long as the document takes.
	// Requests inherit ctx so a shutdown stops running jobs between groups.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.Strings("engines", service.Engines()),
			zap.String("default_engine", service.DefaultEngine()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
