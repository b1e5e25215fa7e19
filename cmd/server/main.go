package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/dora-molecule/internal/buildinfo"
	"github.com/and161185/dora-molecule/internal/config"
	"github.com/and161185/dora-molecule/internal/dora"
	"github.com/and161185/dora-molecule/internal/metrics"
	"github.com/and161185/dora-molecule/internal/server"
	"github.com/and161185/dora-molecule/storage/cache"
	"github.com/and161185/dora-molecule/storage/inmemory"
	"github.com/and161185/dora-molecule/storage/postgres"
)

func main() {
	buildinfo.PrintBuildInfo(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := config.NewServerConfig()
	defer func() { _ = config.Logger.Sync() }()

	config.Logger.Infof("Server config: Addr=%s, BaseURL=%s, ServiceName=%s, HostOrigin=%q, DatasetPath=%q, CacheSize=%d, CacheTTL=%s, DatabaseDSN set=%t",
		config.Addr,
		config.BaseURL,
		config.ServiceName,
		config.HostOrigin,
		config.DatasetPath,
		config.CacheSize,
		config.CacheTTL,
		config.DatabaseDsn != "",
	)
	if config.HostOrigin == "" {
		config.Logger.Warn("HOST_ORIGIN is not set, the widget will announce readiness to any origin")
	}

	source, closeSource, err := newSource(ctx, config)
	if err != nil {
		config.Logger.Fatal(err)
	}
	defer closeSource()

	provider := dora.NewProvider(source, dora.Config{BaseURL: config.BaseURL, HostOrigin: config.HostOrigin}, config.Logger)
	srv, err := server.NewServer(provider, config, metrics.NewProm())
	if err != nil {
		config.Logger.Fatal(err)
	}
	if err := srv.Run(ctx); err != nil {
		config.Logger.Fatal(err)
	}
}

// newSource picks postgres when a DSN is configured and the mock dataset
// otherwise, wrapped in the snapshot cache unless it is disabled.
func newSource(ctx context.Context, cfg *config.ServerConfig) (dora.Source, func(), error) {
	var (
		source  dora.Source
		closeFn = func() {}
	)
	if cfg.DatabaseDsn != "" {
		store, err := postgres.NewPostgresStorage(ctx, cfg.DatabaseDsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		source, closeFn = store, store.Close
	} else {
		store := inmemory.NewMemStorage()
		if cfg.DatasetPath != "" {
			if err := store.LoadFromFile(cfg.DatasetPath); err != nil {
				return nil, nil, fmt.Errorf("load dataset: %w", err)
			}
		}
		source = store
	}

	if cfg.CacheSize <= 0 {
		return source, closeFn, nil
	}
	cached, err := cache.New(source, cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("create cache: %w", err)
	}
	return cached, closeFn, nil
}
