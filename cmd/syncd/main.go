package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"FadiSync/internal/admin"
	"FadiSync/internal/catalog"
	"FadiSync/internal/config"
	"FadiSync/internal/syncer"
	"FadiSync/internal/woo"
	"FadiSync/pkg/kit"
)

func main() {
	service := "syncd"
	cfg := config.Load()

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := cfg.ValidateServer(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	store, err := newStore(cfg, log)
	if err != nil {
		log.Fatal("store init failed", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	metrics := syncer.NewMetrics(registry)

	remote := woo.NewClient(cfg.WooBaseURL, cfg.WooConsumerKey, cfg.WooConsumerSecret)

	var guard *admin.Guard
	if cfg.AdminKeyHash != "" {
		guard = admin.NewGuard(cfg.AdminKeyHash, cfg.AdminJWTSecret, log)
	} else {
		log.Warn("ADMIN_KEY_HASH not set, cache-control actions are unauthenticated")
	}

	s := &syncer.Server{
		Store: store,
		Snapshotter: &syncer.Snapshotter{
			Remote:   remote,
			Store:    store,
			Log:      log,
			Metrics:  metrics,
			PageSize: cfg.SyncPageSize,
		},
		Cache:           syncer.NewCache(remote, cfg.SyncPageSize, log, metrics),
		Patcher:         &syncer.Patcher{Store: store, Log: log, Metrics: metrics},
		Guard:           guard,
		Log:             log,
		WebhookSecret:   cfg.WebhookSecret,
		SitemapMaxPages: cfg.SitemapMaxPages,
	}

	h := syncer.NewHandler(s, syncer.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       registry,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		CORSOrigins:    cfg.CORSOrigins,
	})

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func newStore(cfg config.Config, log *zap.Logger) (catalog.Store, error) {
	if cfg.Store != "postgres" {
		log.Info("using file store", zap.String("dir", cfg.DataDir))
		return catalog.NewFileStore(cfg.DataDir), nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	store := catalog.NewPostgresStore(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	log.Info("using postgres store")
	return store, nil
}
