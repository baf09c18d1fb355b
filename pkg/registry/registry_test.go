package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbot-ai/finbot-go/pkg/scheduler"
	"github.com/finbot-ai/finbot-go/pkg/tenant"
	"github.com/finbot-ai/finbot-go/pkg/userconfig"
	"github.com/finbot-ai/finbot-go/pkg/workspace"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	base := t.TempDir()

	workspaces, err := workspace.NewStore(base)
	require.NoError(t, err)
	configs, err := userconfig.NewStore(base)
	require.NoError(t, err)
	sched := scheduler.NewService(func(ctx context.Context, tenantID, kind string) error { return nil })

	return NewRegistry(workspaces, configs, sched)
}

func TestCreateTenant(t *testing.T) {
	r := newTestRegistry(t)

	cfg, err := r.CreateTenant("alice", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.UserID)
	assert.True(t, r.Workspaces.Exists("alice"))

	// Default preferences are daily at 09:00, so a daily job is armed.
	jobs := r.Scheduler.ListForTenant("alice")
	require.Len(t, jobs, 1)
	assert.Equal(t, "daily_report_alice", jobs[0].ID)
	assert.Equal(t, 9, jobs[0].Trigger.Hour)
}

func TestCreateTenantInvalidID(t *testing.T) {
	r := newTestRegistry(t)

	for _, id := range []string{"", "ab", "has space", "bad/slash", "x"} {
		_, err := r.CreateTenant(id, nil)
		var ve *tenant.ValidationError
		assert.True(t, errors.As(err, &ve), "id %q should be rejected", id)
	}
}

func TestCreateTenantDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.CreateTenant("alice", nil)
	require.NoError(t, err)
	_, err = r.CreateTenant("alice", nil)
	assert.ErrorIs(t, err, tenant.ErrAlreadyExists)
}

func TestCreateTenantFailsBeforeConfigWhenWorkspaceTaken(t *testing.T) {
	r := newTestRegistry(t)

	// A pre-existing workspace root stops provisioning before any config
	// record or job is created.
	_, err := r.Workspaces.Create("alice", nil)
	require.NoError(t, err)

	_, err = r.CreateTenant("alice", nil)
	assert.ErrorIs(t, err, tenant.ErrAlreadyExists)
	_, err = r.Configs.Get("alice")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
	assert.Empty(t, r.Scheduler.ListForTenant("alice"))
}

func TestGetTenant(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.CreateTenant("alice", nil)
	require.NoError(t, err)

	got, err := r.GetTenant("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Config.UserID)
	assert.NotZero(t, got.Workspace.Files)
	assert.Len(t, got.Jobs, 1)

	_, err = r.GetTenant("ghost")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestDeleteTenantCascades(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.CreateTenant("alice", nil)
	require.NoError(t, err)

	require.NoError(t, r.DeleteTenant("alice"))

	assert.False(t, r.Workspaces.Exists("alice"))
	_, err = r.Configs.Get("alice")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
	assert.Empty(t, r.Scheduler.ListForTenant("alice"))

	assert.ErrorIs(t, r.DeleteTenant("alice"), tenant.ErrNotFound)
}

func TestUpdatePreferencesResyncsSchedule(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.CreateTenant("alice", nil)
	require.NoError(t, err)

	freq := "both"
	at := "18:30"
	_, err = r.UpdatePreferences("alice", userconfig.PreferencesPatch{
		ReportFrequency: &freq,
		ReportTime:      &at,
	})
	require.NoError(t, err)

	jobs := r.Scheduler.ListForTenant("alice")
	require.Len(t, jobs, 2)
	assert.Equal(t, "daily_report_alice", jobs[0].ID)
	assert.Equal(t, 18, jobs[0].Trigger.Hour)
	assert.Equal(t, 30, jobs[0].Trigger.Minute)
	assert.Equal(t, "weekly_report_alice", jobs[1].ID)

	// Narrowing back to weekly removes the daily job.
	weekly := "weekly"
	_, err = r.UpdatePreferences("alice", userconfig.PreferencesPatch{ReportFrequency: &weekly})
	require.NoError(t, err)

	jobs = r.Scheduler.ListForTenant("alice")
	require.Len(t, jobs, 1)
	assert.Equal(t, "weekly_report_alice", jobs[0].ID)
}

func TestCloneTenant(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.CreateTenant("alice", nil)
	require.NoError(t, err)

	// Source customizations travel; the config record does not.
	stocks := []string{"AAPL"}
	_, err = r.UpdateWatchlist("alice", userconfig.WatchlistPatch{Stocks: &stocks})
	require.NoError(t, err)

	cfg, err := r.CloneTenant("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.UserID)
	assert.Empty(t, cfg.Watchlist.Stocks)
	assert.True(t, r.Workspaces.Exists("bob"))
	assert.Len(t, r.Scheduler.ListForTenant("bob"), 1)
}

func TestSyncAllSchedules(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.CreateTenant("alice", nil)
	require.NoError(t, err)
	_, err = r.CreateTenant("bob", nil)
	require.NoError(t, err)

	// Simulate a restart: the in-memory job table is empty.
	r.Scheduler.RemoveForTenant("alice")
	r.Scheduler.RemoveForTenant("bob")

	require.NoError(t, r.SyncAllSchedules())
	assert.Len(t, r.Scheduler.ListForTenant("alice"), 1)
	assert.Len(t, r.Scheduler.ListForTenant("bob"), 1)
}
