package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/dora-molecule/internal/config"
	"github.com/and161185/dora-molecule/internal/dora"
	"github.com/and161185/dora-molecule/internal/errs"
	"github.com/and161185/dora-molecule/internal/server"
	"github.com/and161185/dora-molecule/model"
	"github.com/and161185/dora-molecule/storage/inmemory"
)

func newMolecule(t *testing.T, key string) *httptest.Server {
	t.Helper()
	cfg := &config.ServerConfig{
		BaseURL:     "http://molecule.test",
		ServiceName: config.DefaultServiceName,
		Key:         key,
		Logger:      zap.NewNop().Sugar(),
	}
	provider := dora.NewProvider(inmemory.NewMemStorage(), dora.Config{BaseURL: cfg.BaseURL}, cfg.Logger)
	srv, err := server.NewServer(provider, cfg, nil)
	require.NoError(t, err)
	router, err := srv.Router()
	require.NoError(t, err)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_EndToEnd(t *testing.T) {
	ts := newMolecule(t, "secret")
	c := NewClient(&config.ClientConfig{ServerAddr: ts.URL, ClientTimeout: 5, Key: "secret"})
	ctx := context.Background()

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 7)

	services, err := c.Services(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"checkout", "inventory", "notifications", "payments", "search"}, services)

	res, err := c.DoraMetrics(ctx, "checkout", 30)
	require.NoError(t, err)
	require.Equal(t, "http://molecule.test/static/dora-metrics.js", res.Meta.Renderer.Source)
	require.Equal(t, model.UnitPercent, res.ChangeFailureRate.Unit)

	deps, err := c.Deployments(ctx, "payments", 5, "success")
	require.NoError(t, err)
	require.LessOrEqual(t, len(deps.Deployments), 5)
	for _, d := range deps.Deployments {
		require.Equal(t, model.DeploymentSuccess, d.Status)
	}
}

func TestClient_ErrorKinds(t *testing.T) {
	ts := newMolecule(t, "")
	c := NewClient(&config.ClientConfig{ServerAddr: ts.URL, ClientTimeout: 5})
	ctx := context.Background()

	err := c.CallTool(ctx, "get_weather", nil, nil)
	require.ErrorIs(t, err, errs.ErrUnknownTool)

	_, err = c.DoraMetrics(ctx, "checkout", 0)
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.Code)
}

func TestClient_WrongKeyRejected(t *testing.T) {
	ts := newMolecule(t, "server-key")
	c := NewClient(&config.ClientConfig{ServerAddr: ts.URL, ClientTimeout: 5, Key: "client-key"})

	_, err := c.Services(context.Background())
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestClient_ContextCancelledStopsRetries(t *testing.T) {
	c := NewClient(&config.ClientConfig{ServerAddr: "http://127.0.0.1:1", ClientTimeout: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Services(ctx)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestStatusError_Unwrap(t *testing.T) {
	require.ErrorIs(t, &StatusError{Code: http.StatusServiceUnavailable}, errs.ErrDataUnavailable)
	require.ErrorIs(t, &StatusError{Code: http.StatusNotFound, Message: "snapshot for x: not found"}, errs.ErrNotFound)
	require.NoError(t, (&StatusError{Code: http.StatusTeapot}).Unwrap())
}
