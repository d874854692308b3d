package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/casanoova/compass/internal/api"
	"github.com/casanoova/compass/internal/cache"
	"github.com/casanoova/compass/internal/config"
	"github.com/casanoova/compass/internal/db"
	"github.com/casanoova/compass/internal/mail"
	"github.com/casanoova/compass/internal/metrics"
	"github.com/casanoova/compass/internal/middleware"
	"github.com/casanoova/compass/internal/services"
)

type appOptions struct {
	// memory runs on a process-local store that is seeded on start.
	memory bool
	seed   bool
}

// app owns every long-lived dependency of the process.
type app struct {
	cfg      config.Config
	store    api.Store
	sqlStore *db.SQLStore
	redis    *redis.Client
	metrics  *metrics.Metrics
	tokens   *middleware.Tokens
	services api.Services
}

func openSQL(ctx context.Context, cfg config.Config) (*db.SQLStore, error) {
	if err := ensureSQLiteDir(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		return nil, err
	}
	s, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	applied, err := s.Migrate(ctx, cfg.Database.MigrationsDir)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if len(applied) > 0 {
		slog.Default().Info("migrations applied", "module", "db", "files", applied)
	}
	return s, nil
}

func newApp(ctx context.Context, cfg config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New()}
	if opts.memory {
		a.store = api.NewMemoryStore()
		opts.seed = true
	} else {
		s, err := openSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.sqlStore = s
		a.store = s
	}
	if opts.seed {
		pairs, translations, err := db.SeedCatalog(ctx, a.store)
		if err != nil {
			a.close()
			return nil, err
		}
		slog.Default().Info("catalog seeded", "module", "db", "pairs", pairs, "translations", translations)
	}

	catalog := services.NewCatalogService(a.store)
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			// the cache only saves catalog reads; run without it
			slog.Default().Warn("catalog cache disabled", "module", "cache", "error", err.Error())
		} else {
			a.redis = client
			catalog.WithCache(cache.NewCatalogCache(client, cfg.Redis.Prefix), cfg.Redis.CatalogTTL)
		}
	}

	var sender mail.Sender = mail.LogSender{}
	if cfg.Mail.SMTPHost != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}
	notifier := mail.NewNotifier(sender, cfg.Server.BaseURL)

	a.tokens = middleware.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	results := services.NewResultsService(a.store, catalog, cfg.ReleasePolicy())
	a.services = api.Services{
		Survey:    services.NewSurveyService(a.store, catalog).WithObserver(a.metrics),
		Results:   results,
		Teams:     services.NewTeamService(a.store, cfg.Survey.Team, notifier),
		Admin:     services.NewAdminService(a.store, results, notifier).WithLocale(cfg.Survey.DefaultLocale),
		Auth:      services.NewAuthService(a.store, a.tokens, notifier).WithTTLs(cfg.Auth.SessionTTL, cfg.Auth.MagicLinkTTL),
		Reminders: services.NewReminderService(a.store, notifier).WithLocale(cfg.Survey.DefaultLocale).WithObserver(a.metrics),
	}
	return a, nil
}

func (a *app) handler() http.Handler {
	c, b := versionInfo()
	return api.NewRouter(api.NewHandler(a.services, api.VersionInfo{Commit: c, BuildTime: b}), api.RouterConfig{
		Tokens:      a.tokens,
		CronSecret:  a.cfg.Auth.CronSecret,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Observe:     a.metrics.ObserveRequest,
		Metrics:     a.metrics.Handler(),
	})
}

func (a *app) close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.sqlStore != nil {
		errs = append(errs, a.sqlStore.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Default().Warn("shutdown cleanup failed", "error", err.Error())
	}
}
