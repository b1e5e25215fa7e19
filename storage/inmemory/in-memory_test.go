package inmemory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/dora-molecule/model"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
}

func TestMemStorage_Services(t *testing.T) {
	st := NewMemStorage()
	got, err := st.Services(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"checkout", "inventory", "notifications", "payments", "search"}, got)
}

func TestMemStorage_SnapshotBuiltin(t *testing.T) {
	st := NewMemStorage()
	snap, err := st.Snapshot(context.Background(), "checkout", 30)
	require.NoError(t, err)

	require.Equal(t, model.Snapshot{
		Service:           "checkout",
		PeriodDays:        30,
		TotalDeployments:  252,
		FailedDeployments: 11,
		LeadTimeHours:     0.75,
		Incidents:         2,
		RecoveryHours:     0.5,
	}, snap)
}

func TestMemStorage_UnknownServiceIsDeterministic(t *testing.T) {
	ctx := context.Background()
	a, err := NewMemStorage().Snapshot(ctx, "billing", 30)
	require.NoError(t, err)
	b, err := NewMemStorage().Snapshot(ctx, "billing", 30)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Positive(t, a.TotalDeployments)
	require.LessOrEqual(t, a.FailedDeployments, a.TotalDeployments)

	c, err := NewMemStorage().Snapshot(ctx, "ledger", 30)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestMemStorage_Deployments(t *testing.T) {
	ctx := context.Background()
	st := NewMemStorage(WithClock(fixedClock))

	first, err := st.Deployments(ctx, "payments")
	require.NoError(t, err)
	second, err := st.Deployments(ctx, "payments")
	require.NoError(t, err)

	require.Len(t, first, deploymentsPerService)
	require.Equal(t, first, second)
	for _, d := range first {
		require.Equal(t, "payments", d.Service)
		require.True(t, d.Timestamp.Before(fixedClock()))
		require.False(t, d.Timestamp.Before(fixedClock().Add(-deploymentWindow)))
		require.Contains(t, []model.DeploymentStatus{model.DeploymentSuccess, model.DeploymentFailed}, d.Status)
		require.Len(t, d.CommitSHA, 6)
		require.GreaterOrEqual(t, d.DurationSeconds, 30)
		require.LessOrEqual(t, d.DurationSeconds, 600)
	}
}

func TestMemStorage_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"ledger": {"deployments_per_day": 1, "change_failure_rate": 10, "lead_time_hours": 2, "recovery_hours": 1, "incidents_per_month": 3}
	}`), 0o600))

	st := NewMemStorage()
	require.NoError(t, st.LoadFromFile(path))

	services, err := st.Services(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"ledger"}, services)

	snap, err := st.Snapshot(context.Background(), "ledger", 10)
	require.NoError(t, err)
	require.Equal(t, 10, snap.TotalDeployments)
	require.Equal(t, 1, snap.FailedDeployments)
	require.Equal(t, 1, snap.Incidents)
}

func TestMemStorage_LoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	cases := map[string]string{
		"missing":  filepath.Join(dir, "nope.json"),
		"garbage":  write("garbage.json", "{"),
		"empty":    write("empty.json", "{}"),
		"negative": write("negative.json", `{"x": {"deployments_per_day": -1}}`),
		"percent":  write("percent.json", `{"x": {"change_failure_rate": 120}}`),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			st := NewMemStorage()
			require.Error(t, st.LoadFromFile(path))

			services, err := st.Services(context.Background())
			require.NoError(t, err)
			require.Len(t, services, len(builtin))
		})
	}
}
