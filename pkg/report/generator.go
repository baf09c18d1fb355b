package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/finbot-ai/finbot-go/pkg/bus"
	"github.com/finbot-ai/finbot-go/pkg/providers"
	"github.com/finbot-ai/finbot-go/pkg/templates"
	"github.com/finbot-ai/finbot-go/pkg/tenant"
	"github.com/finbot-ai/finbot-go/pkg/userconfig"
	"github.com/finbot-ai/finbot-go/pkg/workspace"
)

// Result records the outcome of one generation run. It is immutable once
// returned.
type Result struct {
	Success     bool      `json:"success"`
	ReportID    string    `json:"report_id"`
	TenantID    string    `json:"tenant_id"`
	Kind        string    `json:"kind"`
	Path        string    `json:"path,omitempty"`
	Content     string    `json:"content,omitempty"`
	Attempts    int       `json:"attempts"`
	Error       string    `json:"error,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Generator composes the template renderer with the generation client and
// archives the result into the owning tenant's workspace.
type Generator struct {
	Configs    *userconfig.Store
	Workspaces *workspace.Store
	Client     providers.Generator
	Bus        *bus.EventBus

	MaxAttempts int
	BackoffBase time.Duration
	CallTimeout time.Duration
}

// NewGenerator creates a report Generator with the default retry budget.
func NewGenerator(configs *userconfig.Store, workspaces *workspace.Store, client providers.Generator, eventBus *bus.EventBus) *Generator {
	return &Generator{
		Configs:     configs,
		Workspaces:  workspaces,
		Client:      client,
		Bus:         eventBus,
		MaxAttempts: 3,
		BackoffBase: 500 * time.Millisecond,
		CallTimeout: 2 * time.Minute,
	}
}

// Generate produces one report for a tenant. Precondition failures (tenant
// unknown, template kind unknown) return an error; generation and
// persistence failures return a failed Result with the error descriptor
// and persist nothing.
func (g *Generator) Generate(ctx context.Context, tenantID, kind string, extra map[string]string) (*Result, error) {
	cfg, err := g.Configs.Get(tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payload, err := templates.Render(cfg, templates.Params{Kind: kind, Now: now, Extra: extra})
	if err != nil {
		return nil, err
	}

	result := &Result{
		ReportID:    fmt.Sprintf("%s_%s_%s", kind, now.Format("20060102_150405"), uuid.New().String()[:8]),
		TenantID:    tenantID,
		Kind:        kind,
		GeneratedAt: now,
	}

	content, attempts, err := g.invokeWithRetry(ctx, payload)
	result.Attempts = attempts
	if err != nil {
		result.Error = err.Error()
		log.Printf("report: generation failed for %s/%s after %d attempts: %v", tenantID, kind, attempts, err)
		return result, nil
	}

	path, err := g.archive(tenantID, result.ReportID, content, payload, cfg)
	if err != nil {
		result.Error = err.Error()
		log.Printf("report: archive failed for %s/%s: %v", tenantID, kind, err)
		return result, nil
	}

	result.Success = true
	result.Content = content
	result.Path = path
	log.Printf("report: generated %s for %s (%d attempts)", result.ReportID, tenantID, attempts)

	if g.Bus != nil {
		g.Bus.PublishReport(bus.ReportGenerated{
			TenantID:    tenantID,
			ReportID:    result.ReportID,
			Kind:        kind,
			Path:        path,
			GeneratedAt: now,
			Channels:    cfg.Preferences.NotificationChannels,
		})
	}
	return result, nil
}

// RunScheduled adapts Generate for scheduled firings. Precondition
// failures and exhausted generations both surface as errors so the
// scheduler records them on the job state instead of dropping them.
func (g *Generator) RunScheduled(ctx context.Context, tenantID, kind string) error {
	result, err := g.Generate(ctx, tenantID, kind, nil)
	if err != nil {
		return fmt.Errorf("scheduled %s report for %s: %w", kind, tenantID, err)
	}
	if !result.Success {
		return fmt.Errorf("scheduled %s report for %s failed after %d attempts: %s", kind, tenantID, result.Attempts, result.Error)
	}
	return nil
}

// invokeWithRetry calls the generation client up to MaxAttempts times with
// exponential backoff, retrying only retryable failures.
func (g *Generator) invokeWithRetry(ctx context.Context, payload string) (string, int, error) {
	var lastErr error
	for attempt := 1; attempt <= g.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.CallTimeout)
		content, err := g.Client.Generate(callCtx, payload)
		cancel()

		if err == nil {
			return content, attempt, nil
		}
		lastErr = err

		if !providers.Retryable(err) {
			return "", attempt, err
		}
		if attempt == g.MaxAttempts {
			break
		}

		backoff := g.BackoffBase * time.Duration(1<<(attempt-1))
		log.Printf("report: attempt %d failed (%v), retrying in %s", attempt, err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", attempt, fmt.Errorf("%w: %v", providers.ErrTimeout, ctx.Err())
		}
	}
	return "", g.MaxAttempts, lastErr
}

// archive writes the report and a metadata sidecar into the tenant's
// reports area with an atomic rename, so no half-written report is ever
// visible.
func (g *Generator) archive(tenantID, reportID, content, payload string, cfg *userconfig.Config) (string, error) {
	reportsDir := filepath.Join(g.Workspaces.Path(tenantID), "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}

	path := filepath.Join(reportsDir, reportID+".md")
	if err := atomicWrite(path, []byte(content)); err != nil {
		return "", err
	}

	meta := map[string]interface{}{
		"report_id":      reportID,
		"tenant_id":      tenantID,
		"generated_at":   time.Now().Format(time.RFC3339),
		"language":       cfg.Preferences.Language,
		"format":         cfg.Preferences.ReportFormat,
		"prompt_length":  len(payload),
		"content_length": len(content),
	}
	metaData, _ := json.MarshalIndent(meta, "", "  ")
	if err := atomicWrite(path+".meta.json", metaData); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", tenant.ErrIOFailure, err)
	}
	return nil
}
