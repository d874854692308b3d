package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/casanoova/compass/internal/config"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var seed, memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, appOptions{seed: seed, memory: memory})
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the adjective catalog before serving")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep all data in process memory (demo mode)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, opts appOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default().With("module", "server")
	if cfg.Auth.JWTSecret == config.DevJWTSecret {
		log.Warn("using the development JWT secret; set COMPASS_JWT_SECRET in production")
	}
	if cfg.Auth.CronSecret == "" {
		log.Info("cron secret unset; the reminder endpoint rejects every call")
	}

	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver, "memory", opts.memory, "release_policy", cfg.Survey.ReleasePolicy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
