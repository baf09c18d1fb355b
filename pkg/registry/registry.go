package registry

import (
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/finbot-ai/finbot-go/pkg/scheduler"
	"github.com/finbot-ai/finbot-go/pkg/tenant"
	"github.com/finbot-ai/finbot-go/pkg/userconfig"
	"github.com/finbot-ai/finbot-go/pkg/workspace"
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// Registry is the tenant lifecycle surface: it keeps workspace,
// configuration and scheduled jobs consistent for every tenant. Callers
// are assumed to be authorized already.
type Registry struct {
	Workspaces *workspace.Store
	Configs    *userconfig.Store
	Scheduler  *scheduler.Service
}

// NewRegistry wires the registry over its stores.
func NewRegistry(workspaces *workspace.Store, configs *userconfig.Store, sched *scheduler.Service) *Registry {
	return &Registry{
		Workspaces: workspaces,
		Configs:    configs,
		Scheduler:  sched,
	}
}

// Tenant bundles everything the registry knows about one tenant.
type Tenant struct {
	Config    *userconfig.Config `json:"config"`
	Workspace workspace.Info     `json:"workspace"`
	Jobs      []scheduler.Job    `json:"jobs"`
}

// CreateTenant provisions a workspace, a configuration record and the
// scheduled jobs implied by the default preferences.
func (r *Registry) CreateTenant(tenantID string, initial map[string]interface{}) (*userconfig.Config, error) {
	if !tenantIDPattern.MatchString(tenantID) {
		return nil, &tenant.ValidationError{Field: "tenant_id", Value: tenantID, Reason: "must be 3-50 chars of letters, digits, _ or -"}
	}

	if _, err := r.Workspaces.Create(tenantID, nil); err != nil {
		return nil, err
	}

	cfg, err := r.Configs.CreateUser(tenantID, initial)
	if err != nil {
		// Roll the workspace back so a retry starts clean.
		r.Workspaces.Delete(tenantID)
		return nil, err
	}

	if err := r.syncSchedule(cfg); err != nil {
		log.Printf("registry: schedule sync for %s failed: %v", tenantID, err)
	}

	log.Printf("registry: created tenant %s", tenantID)
	return cfg, nil
}

// CloneTenant provisions a new tenant from an existing one's workspace
// artifacts. The new tenant gets a fresh default configuration.
func (r *Registry) CloneTenant(sourceID, destID string) (*userconfig.Config, error) {
	if !tenantIDPattern.MatchString(destID) {
		return nil, &tenant.ValidationError{Field: "tenant_id", Value: destID, Reason: "must be 3-50 chars of letters, digits, _ or -"}
	}

	if _, err := r.Workspaces.Clone(sourceID, destID); err != nil {
		return nil, err
	}

	cfg, err := r.Configs.CreateUser(destID, nil)
	if err != nil {
		r.Workspaces.Delete(destID)
		return nil, err
	}

	if err := r.syncSchedule(cfg); err != nil {
		log.Printf("registry: schedule sync for %s failed: %v", destID, err)
	}
	return cfg, nil
}

// GetTenant returns the tenant's configuration, workspace info and jobs.
func (r *Registry) GetTenant(tenantID string) (*Tenant, error) {
	cfg, err := r.Configs.Get(tenantID)
	if err != nil {
		return nil, err
	}
	info, err := r.Workspaces.Stat(tenantID)
	if err != nil {
		return nil, err
	}
	return &Tenant{
		Config:    cfg,
		Workspace: info,
		Jobs:      r.Scheduler.ListForTenant(tenantID),
	}, nil
}

// ListTenants returns all tenant ids, ordered by id.
func (r *Registry) ListTenants() ([]string, error) {
	return r.Configs.ListTenants()
}

// DeleteTenant removes the tenant's jobs, configuration and workspace.
func (r *Registry) DeleteTenant(tenantID string) error {
	if !r.Workspaces.Exists(tenantID) {
		return fmt.Errorf("tenant %s: %w", tenantID, tenant.ErrNotFound)
	}

	removed := r.Scheduler.RemoveForTenant(tenantID)
	if err := r.Configs.Delete(tenantID); err != nil {
		return err
	}
	if err := r.Workspaces.Delete(tenantID); err != nil {
		return err
	}

	log.Printf("registry: deleted tenant %s (%d jobs removed)", tenantID, removed)
	return nil
}

// UpdateWatchlist merges the supplied watchlist categories.
func (r *Registry) UpdateWatchlist(tenantID string, patch userconfig.WatchlistPatch) (*userconfig.Config, error) {
	return r.Configs.UpdateWatchlist(tenantID, patch)
}

// UpdatePreferences merges the supplied preference fields and re-syncs
// the tenant's scheduled jobs against the new cadence.
func (r *Registry) UpdatePreferences(tenantID string, patch userconfig.PreferencesPatch) (*userconfig.Config, error) {
	cfg, err := r.Configs.UpdatePreferences(tenantID, patch)
	if err != nil {
		return nil, err
	}
	if err := r.syncSchedule(cfg); err != nil {
		log.Printf("registry: schedule sync for %s failed: %v", tenantID, err)
	}
	return cfg, nil
}

// SyncAllSchedules re-arms recurring jobs for every known tenant from
// their stored preferences. Called on boot since the job table is
// in-memory.
func (r *Registry) SyncAllSchedules() error {
	ids, err := r.Configs.ListTenants()
	if err != nil {
		return err
	}
	for _, id := range ids {
		cfg, err := r.Configs.Get(id)
		if err != nil {
			log.Printf("registry: skipping schedule sync for %s: %v", id, err)
			continue
		}
		if err := r.syncSchedule(cfg); err != nil {
			log.Printf("registry: schedule sync for %s failed: %v", id, err)
		}
	}
	return nil
}

// syncSchedule aligns the tenant's recurring jobs with its preferences:
// daily and/or weekly report jobs at the preferred time, anything no
// longer wanted removed.
func (r *Registry) syncSchedule(cfg *userconfig.Config) error {
	hour, minute := parseReportTime(cfg.Preferences.ReportTime)
	freq := cfg.Preferences.ReportFrequency

	wantDaily := freq == "daily" || freq == "both"
	wantWeekly := freq == "weekly" || freq == "both"

	if wantDaily {
		if _, err := r.Scheduler.Upsert(cfg.UserID, "daily", scheduler.Daily(hour, minute)); err != nil {
			return err
		}
	} else {
		r.Scheduler.Remove(scheduler.JobID(cfg.UserID, "daily"))
	}

	if wantWeekly {
		if _, err := r.Scheduler.Upsert(cfg.UserID, "weekly", scheduler.Weekly("mon", hour, minute)); err != nil {
			return err
		}
	} else {
		r.Scheduler.Remove(scheduler.JobID(cfg.UserID, "weekly"))
	}
	return nil
}

func parseReportTime(value string) (int, int) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 9, 0
	}
	return t.Hour(), t.Minute()
}
