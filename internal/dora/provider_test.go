package dora

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/dora-molecule/internal/dora/mocks"
	"github.com/and161185/dora-molecule/internal/errs"
	"github.com/and161185/dora-molecule/model"
)

var checkoutSnapshot = model.Snapshot{
	TotalDeployments:  252,
	FailedDeployments: 11,
	LeadTimeHours:     4.5,
	Incidents:         2,
	RecoveryHours:     0.75,
}

func newTestProvider(t *testing.T, cfg Config) (*Provider, *mocks.MockSource) {
	t.Helper()
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	return NewProvider(src, cfg, zap.NewNop().Sugar()), src
}

func TestGetDoraMetrics(t *testing.T) {
	p, src := newTestProvider(t, Config{BaseURL: "http://localhost:9000/"})
	src.EXPECT().Snapshot(gomock.Any(), "checkout", 30).Return(checkoutSnapshot, nil)

	res, err := p.GetDoraMetrics(context.Background(), "checkout", 30)
	require.NoError(t, err)

	require.Equal(t, "checkout", res.Service)
	require.Equal(t, 30, res.PeriodDays)
	require.Equal(t, 8.4, res.DeploymentFrequency.Value)
	require.Equal(t, model.RatingHigh, res.LeadTimeForChanges.Rating)
	require.Equal(t, 0.75, res.MeanTimeToRecovery.Value)
	require.Equal(t, model.UnitPercent, res.ChangeFailureRate.Unit)

	require.Equal(t, model.RendererRemote, res.Meta.Renderer.Type)
	require.Equal(t, "http://localhost:9000/static/dora-metrics.js", res.Meta.Renderer.Source)
	require.True(t, strings.HasSuffix(res.Meta.Renderer.Source, "/static/dora-metrics.js"))
}

func TestGetDoraMetrics_JSONShape(t *testing.T) {
	p, src := newTestProvider(t, Config{BaseURL: "http://localhost:9000"})
	src.EXPECT().Snapshot(gomock.Any(), "checkout", 30).Return(checkoutSnapshot, nil)

	res, err := p.GetDoraMetrics(context.Background(), "checkout", 30)
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "checkout", got["service"])
	for _, k := range model.MetricOrder {
		require.Contains(t, got, string(k))
	}
	meta := got["_meta"].(map[string]any)["renderer"].(map[string]any)
	require.Equal(t, "remote", meta["type"])
	require.Equal(t, "http://localhost:9000/static/dora-metrics.js", meta["source"])
}

func TestRenderer_TargetsHostOrigin(t *testing.T) {
	p, _ := newTestProvider(t, Config{BaseURL: "https://mol.example.com", HostOrigin: "https://app.example.com"})
	require.Equal(t,
		"https://mol.example.com/static/dora-metrics.js?origin=https%3A%2F%2Fapp.example.com",
		p.Renderer().Source)
}

func TestSnapshotValidation(t *testing.T) {
	cases := []struct {
		name    string
		service string
		days    int
	}{
		{"empty", "", 30},
		{"blank", "   ", 30},
		{"control", "check\nout", 30},
		{"too-long", strings.Repeat("x", maxServiceLen+1), 30},
		{"zero-days", "checkout", 0},
		{"too-many-days", "checkout", MaxDays + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newTestProvider(t, Config{})
			_, err := p.GetLeadTime(context.Background(), tc.service, tc.days)
			require.ErrorIs(t, err, errs.ErrInvalidInput)
		})
	}
}

func TestSourceErrorsPropagate(t *testing.T) {
	for _, kind := range []error{errs.ErrNotFound, errs.ErrDataUnavailable} {
		p, src := newTestProvider(t, Config{})
		src.EXPECT().Snapshot(gomock.Any(), "ghost", 7).Return(model.Snapshot{}, kind)

		_, err := p.GetMTTR(context.Background(), "ghost", 7)
		require.ErrorIs(t, err, kind)
	}
}

func TestSingleMetricTools(t *testing.T) {
	p, src := newTestProvider(t, Config{})
	src.EXPECT().Snapshot(gomock.Any(), "checkout", 30).Return(checkoutSnapshot, nil).Times(4)
	ctx := context.Background()

	df, err := p.GetDeploymentFrequency(ctx, "checkout", 30)
	require.NoError(t, err)
	require.Equal(t, model.DeploymentFrequency, df.Metric)
	require.Equal(t, 252, *df.TotalDeployments)

	lt, err := p.GetLeadTime(ctx, " checkout ", 30)
	require.NoError(t, err)
	require.Equal(t, "checkout", lt.Service)
	require.Nil(t, lt.TotalDeployments)

	mttr, err := p.GetMTTR(ctx, "checkout", 30)
	require.NoError(t, err)
	require.Equal(t, 2, *mttr.IncidentsCount)

	cfr, err := p.GetChangeFailureRate(ctx, "checkout", 30)
	require.NoError(t, err)
	require.Equal(t, 11, *cfr.FailedDeployments)
	require.Equal(t, 4.37, cfr.Value)
}

func TestListServices_Sorted(t *testing.T) {
	p, src := newTestProvider(t, Config{})
	src.EXPECT().Services(gomock.Any()).Return([]string{"search", "checkout", "payments"}, nil)

	res, err := p.ListServices(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"checkout", "payments", "search"}, res.Services)
}

func TestListDeployments(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	deps := []model.Deployment{
		{ID: "a", Status: model.DeploymentSuccess, Timestamp: now.Add(-3 * time.Hour)},
		{ID: "b", Status: model.DeploymentFailed, Timestamp: now.Add(-1 * time.Hour)},
		{ID: "c", Status: model.DeploymentSuccess, Timestamp: now.Add(-2 * time.Hour)},
		{ID: "d", Status: model.DeploymentFailed, Timestamp: now.Add(-4 * time.Hour)},
	}

	cases := []struct {
		name      string
		limit     int
		status    string
		wantIDs   []string
		wantTotal int
	}{
		{"all", 10, "all", []string{"b", "c", "a", "d"}, 4},
		{"default-status", 2, "", []string{"b", "c"}, 4},
		{"success", 10, "success", []string{"c", "a"}, 2},
		{"failed-limited", 1, "failed", []string{"b"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, src := newTestProvider(t, Config{})
			src.EXPECT().Deployments(gomock.Any(), "checkout").Return(deps, nil)

			res, err := p.ListDeployments(context.Background(), "checkout", tc.limit, tc.status)
			require.NoError(t, err)
			require.Equal(t, tc.wantTotal, res.Total)

			ids := make([]string, 0, len(res.Deployments))
			for _, d := range res.Deployments {
				ids = append(ids, d.ID)
			}
			require.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestListDeployments_InvalidInput(t *testing.T) {
	p, _ := newTestProvider(t, Config{})
	ctx := context.Background()

	_, err := p.ListDeployments(ctx, "checkout", 0, "all")
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = p.ListDeployments(ctx, "checkout", 5, "rolled-back")
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = p.ListDeployments(ctx, "", 5, "all")
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestProviderLogsToolCalls(t *testing.T) {
	core, obs := observer.New(zap.InfoLevel)
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().Snapshot(gomock.Any(), "checkout", 30).Return(checkoutSnapshot, nil)

	p := NewProvider(src, Config{}, zap.New(core).Sugar())
	_, err := p.GetDoraMetrics(context.Background(), "checkout", 30)
	require.NoError(t, err)
	require.Equal(t, 1, obs.FilterMessage("getting DORA metrics service=checkout days=30").Len())
}
