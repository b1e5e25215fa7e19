package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/dora-molecule/internal/config"
	"github.com/and161185/dora-molecule/storage/cache"
	"github.com/and161185/dora-molecule/storage/inmemory"
)

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	src, closeFn, err := newSource(ctx, &config.ServerConfig{CacheSize: 8, CacheTTL: time.Minute})
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &cache.Source{}, src)

	src, closeFn, err = newSource(ctx, &config.ServerConfig{})
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &inmemory.MemStorage{}, src)
}

func TestNewSource_Dataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"billing":{"deployments_per_day":1,"change_failure_rate":10,"lead_time_hours":2,"recovery_hours":1,"incidents_per_month":1}}`), 0o600))

	src, closeFn, err := newSource(context.Background(), &config.ServerConfig{DatasetPath: path})
	require.NoError(t, err)
	defer closeFn()

	services, err := src.Services(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"billing"}, services)

	_, _, err = newSource(context.Background(), &config.ServerConfig{DatasetPath: filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
}
